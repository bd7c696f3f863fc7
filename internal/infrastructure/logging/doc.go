// Package logging provides structured logging for the scene scheduler.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stderr, stdout, file
//	  file:              # used when output is file
//	    path: "./data/scenesched.log"
//	    max_size_mb: 10
//	    max_backups: 5
//	    max_age_days: 30
//	    compress: true
//
// Logs default to stderr. stdout is kept for the one-line
// "Switched to scene: <name>" announcements so it can be piped.
// File output is rotated by gopkg.in/natefinch/lumberjack.v2.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected to OBS", "address", cfg.OBS.Address())
//
// Never log the OBS password or broker credentials.
package logging
