package cache

import "fmt"

// FrameIndex identifies a decoded frame's position in a video stream.
type FrameIndex = uint32

// DecoderKey identifies one decoder instance: a path decoded at a fixed
// output resolution, scoped to an opaque caller session.
type DecoderKey struct {
	Path      string
	Width     uint32
	Height    uint32
	SessionID string
}

func (k DecoderKey) String() string {
	return fmt.Sprintf("%s@%dx%d#%s", k.Path, k.Width, k.Height, k.SessionID)
}
