// Package frameserver wires the Decoder Registry, Frame Decoder, config,
// and logging together into a single facade cmd/framescriptd drives.
package frameserver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/frame-script/framescript/internal/cache"
	"github.com/frame-script/framescript/internal/config"
	"github.com/frame-script/framescript/internal/decoder"
	"github.com/frame-script/framescript/internal/registry"
)

// Server is the top-level facade: a configured registry plus the decoder
// collaborator backing it.
type Server struct {
	Registry *registry.Registry
	Logger   zerolog.Logger
}

// New builds a Server from a loaded Config.
func New(cfg config.Config, logger zerolog.Logger) (*Server, error) {
	maxBytes, err := cfg.Cache.MaxCacheBytesValue()
	if err != nil {
		return nil, fmt.Errorf("frameserver: parsing max cache bytes: %w", err)
	}

	fd := decoder.NewFFmpegDecoder(cfg.Decoder.FFmpegPath, cfg.Decoder.FFprobePath, logger)

	reg, err := registry.New(fd, cfg.Decoder.HWAccelEnabled, maxBytes, cfg.Cache.GCInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("frameserver: building registry: %w", err)
	}

	return &Server{Registry: reg, Logger: logger}, nil
}

// GetFrame is the single public operation an embedder needs: decode path at
// width x height for sessionID, returning frameIndex's bytes.
func (s *Server) GetFrame(ctx context.Context, path string, width, height uint32, sessionID string, frameIndex uint32) ([]byte, error) {
	key := cache.DecoderKey{Path: path, Width: width, Height: height, SessionID: sessionID}
	inst, err := s.Registry.CachedDecoder(ctx, key)
	if err != nil {
		return nil, err
	}
	return inst.GetFrame(ctx, frameIndex)
}

// Shutdown clears every decoder instance and stops the shared GC scheduler.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Registry.Close(ctx)
}
