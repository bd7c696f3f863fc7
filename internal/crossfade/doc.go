// Package crossfade rotates background videos across two OBS media
// sources, fading one into the other.
//
// Two inputs take turns being visible. Before each fade the hidden input
// is loaded with the next video in the list and made fully transparent.
// The fade then walks both Color Correction filter opacities in equal
// steps, the active source from 1 down to 0 and the other from 0 up to 1.
// After the fade the roles swap and the video index advances, wrapping at
// the end of the list.
//
// A failed step is logged and the rotation carries on at the next
// interval; only cancellation stops Run.
package crossfade
