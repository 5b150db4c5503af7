package decoder

import (
	"errors"
	"fmt"
)

// Sentinel error kinds, matched by callers via errors.Is.
var (
	// ErrSpawnFailed means both the hardware and software stream-spawn
	// attempts failed.
	ErrSpawnFailed = errors.New("decoder: failed to spawn stream")

	// ErrStreamRead means a read from a running stream failed.
	ErrStreamRead = errors.New("decoder: stream read failed")

	// ErrSingleFrame means a single-shot extraction failed.
	ErrSingleFrame = errors.New("decoder: single-frame extraction failed")
)

// SpawnError carries both the hardware and software spawn failures.
type SpawnError struct {
	HWErr error
	SWErr error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("hardware spawn: %v; software spawn: %v", e.HWErr, e.SWErr)
}

func (e *SpawnError) Unwrap() error { return ErrSpawnFailed }

// ReadError reports which decode mode the failing stream was running in.
type ReadError struct {
	HWAccel bool
	Err     error
}

func (e *ReadError) Error() string {
	mode := "software"
	if e.HWAccel {
		mode = "hardware"
	}
	return fmt.Sprintf("%s stream read: %v", mode, e.Err)
}

func (e *ReadError) Unwrap() error { return ErrStreamRead }
