package common

import "time"

// CaptureInstant normalizes a camera-shutter time to whole UTC seconds, the
// precision the SMS channel can carry. Passages delivered over both channels
// then agree on their recorded time.
func CaptureInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
