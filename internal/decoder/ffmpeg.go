package decoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

const (
	// fastSeekBackoffSec bounds the precise, post -i seek. Anything beyond
	// this is done as an imprecise, fast seek before -i instead.
	fastSeekBackoffSec = 2.0

	// defaultFPS is used when probing fails or returns a non-positive rate.
	defaultFPS = 60.0
)

// FFmpegDecoder is the production FrameDecoder: it shells out to ffmpeg for
// both streaming and single-shot decode, and to ffprobe for frame rate.
type FFmpegDecoder struct {
	ffmpegPath  string
	ffprobePath string
	fpsCache    *xsync.MapOf[string, float64]
	logger      zerolog.Logger
}

// NewFFmpegDecoder returns a FrameDecoder backed by the given binaries.
func NewFFmpegDecoder(ffmpegPath, ffprobePath string, logger zerolog.Logger) *FFmpegDecoder {
	return &FFmpegDecoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		fpsCache:    xsync.NewMapOf[string, float64](),
		logger:      logger,
	}
}

// ProbeFPS shells out to ffprobe for the stream's nominal frame rate.
func (d *FFmpegDecoder) ProbeFPS(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe fps: %w", err)
	}
	return parseFrameRate(strings.TrimSpace(string(out)))
}

func parseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("ffprobe fps: malformed rate %q", s)
		}
		return v, nil
	}
	n, err1 := strconv.ParseFloat(num, 64)
	dn, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || dn == 0 {
		return 0, fmt.Errorf("ffprobe fps: malformed rate %q", s)
	}
	return n / dn, nil
}

// fps returns the memoised frame rate for path, probing and caching it (or
// a 60fps default on failure) the first time it is needed.
func (d *FFmpegDecoder) fps(ctx context.Context, path string) float64 {
	if v, ok := d.fpsCache.Load(path); ok {
		return v
	}
	v, err := d.ProbeFPS(ctx, path)
	if err != nil || v <= 0 {
		d.logger.Warn().Err(err).Str("path", path).Msg("fps probe failed, defaulting to 60fps")
		v = defaultFPS
	}
	d.fpsCache.Store(path, v)
	return v
}

// seekSplit computes the coarse (pre -i, fast, imprecise) and fine (post
// -i, slow, frame-accurate) seek offsets for targeting frame at fps.
func seekSplit(targetFrame uint32, fps float64) (coarse, fine float64) {
	fps = math.Max(fps, 1)
	targetSec := float64(targetFrame) / fps
	fine = math.Min(targetSec, fastSeekBackoffSec)
	coarse = targetSec - fine
	return coarse, fine
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// SpawnStream starts ffmpeg decoding path sequentially from startFrame.
func (d *FFmpegDecoder) SpawnStream(ctx context.Context, path string, startFrame, width, height uint32, useHWAccel bool) (StreamHandle, error) {
	frameSize := int(width) * int(height) * 4
	if frameSize <= 0 {
		return nil, fmt.Errorf("ffmpeg spawn: invalid output size %dx%d", width, height)
	}

	fps := d.fps(ctx, path)
	coarse, fine := seekSplit(startFrame, fps)

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if coarse > 0 {
		args = append(args, "-ss", formatSeconds(coarse))
	}
	if useHWAccel {
		args = append(args, "-hwaccel", "auto")
	}
	args = append(args, "-i", path)
	if fine > 0 {
		args = append(args, "-ss", formatSeconds(fine))
	}
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-an", "-vsync", "0",
		"-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1",
	)

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	return &ffmpegStream{
		cmd:        cmd,
		stdout:     bufio.NewReaderSize(stdout, frameSize),
		frameSize:  frameSize,
		useHWAccel: useHWAccel,
	}, nil
}

// ExtractSingle decodes exactly one frame via a single-shot ffmpeg
// invocation, without a long-lived stream.
func (d *FFmpegDecoder) ExtractSingle(ctx context.Context, path string, frameIndex, width, height uint32, useHWAccel bool) ([]byte, error) {
	frameSize := int(width) * int(height) * 4
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: invalid output size %dx%d", ErrSingleFrame, width, height)
	}

	fps := d.fps(ctx, path)
	targetSec := float64(frameIndex) / math.Max(fps, 1)

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-ss", formatSeconds(targetSec)}
	if useHWAccel {
		args = append(args, "-hwaccel", "auto")
	}
	args = append(args,
		"-i", path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-an", "-f", "rawvideo", "-pix_fmt", "rgba", "pipe:1",
	)

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingleFrame, err)
	}
	if len(out) < frameSize {
		return nil, fmt.Errorf("%w: short read (%d of %d bytes)", ErrSingleFrame, len(out), frameSize)
	}
	return out[:frameSize], nil
}

// ffmpegStream reads sequential raw RGBA frames from a running ffmpeg
// process and reaps it on shutdown.
type ffmpegStream struct {
	cmd        *exec.Cmd
	stdout     *bufio.Reader
	frameSize  int
	useHWAccel bool
	closeOnce  sync.Once
}

func (s *ffmpegStream) ReadNext(ctx context.Context) ([]byte, error) {
	buf := make([]byte, s.frameSize)
	if _, err := io.ReadFull(s.stdout, buf); err != nil {
		return nil, &ReadError{HWAccel: s.useHWAccel, Err: err}
	}
	return buf, nil
}

func (s *ffmpegStream) Shutdown() {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	})
}
