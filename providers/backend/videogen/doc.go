// Package videogen implements the video-generation adapter. Like image
// generation it is a two-phase job, with a slower poll cadence to match the
// longer render times. The finished job resolves to a hosted video URL
// rather than inline bytes.
package videogen
