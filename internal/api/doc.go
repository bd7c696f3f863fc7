// Package api implements the optional read-only status API of the scene
// scheduler.
//
// This package provides:
//   - REST endpoints for dependency health, the current window and scene,
//     and the recorded switch history
//   - WebSocket hub that streams every applied switch as a
//     "scene.switched" event
//   - Optional HS256 bearer token authentication
//   - Request ID, debug request logging, panic recovery and CORS middleware
//
// # Architecture
//
// The API never drives OBS. The switcher controller remains the only writer;
// the server reads its remembered window and the history repository, and the
// hub is registered as one more switch observer.
//
// # Security
//
// When api.jwt.secret is set every route except /api/v1/health requires a
// token signed with it, sent as "Authorization: Bearer <token>" or, for the
// WebSocket upgrade, as the "token" query parameter. Tokens are issued with
// "scenescheduler token".
package api
