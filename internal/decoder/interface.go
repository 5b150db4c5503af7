// Package decoder implements the FrameDecoder collaborator: everything that
// shells out to an external decoder binary. It owns FPS probing and
// memoisation, sequential stream spawn/read/shutdown, and single-shot frame
// extraction. Nothing above this package knows that the decoder is a
// subprocess.
package decoder

import "context"

// FrameDecoder is the external decoder collaborator. Implementations spawn
// and manage a decode process; callers never see process details.
type FrameDecoder interface {
	// ProbeFPS returns the stream's frame rate. Callers that cannot afford
	// to fail default to 60fps on error.
	ProbeFPS(ctx context.Context, path string) (float64, error)

	// SpawnStream starts decoding path from startFrame, emitting sequential
	// raw RGBA frames at width x height.
	SpawnStream(ctx context.Context, path string, startFrame, width, height uint32, useHWAccel bool) (StreamHandle, error)

	// ExtractSingle decodes exactly one frame out of band, without
	// establishing a running stream.
	ExtractSingle(ctx context.Context, path string, frameIndex, width, height uint32, useHWAccel bool) ([]byte, error)
}

// StreamHandle reads sequential frames from a running decode and tears it
// down when no longer needed.
type StreamHandle interface {
	// ReadNext blocks until the next raw RGBA frame is available.
	ReadNext(ctx context.Context) ([]byte, error)

	// Shutdown terminates the underlying process, reaping it so it never
	// becomes a zombie. Safe to call more than once.
	Shutdown()
}
