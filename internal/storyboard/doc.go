// Package storyboard builds the scrubbing preview for a video: one tiled
// sprite JPEG of evenly spaced thumbnails plus a WebVTT cue index mapping
// each time range to its cell in the sprite.
//
// The sprite must be uploaded before the cue index is built because every
// cue embeds the sprite's public URL.
package storyboard
