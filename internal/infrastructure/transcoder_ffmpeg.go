package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/yourusername/sonic-extract-go/internal/domain"
	"go.uber.org/zap"
)

// audioCodecs maps target formats to ffmpeg encoder names
var audioCodecs = map[domain.AudioFormat]string{
	domain.FormatMP3:  "libmp3lame",
	domain.FormatAAC:  "aac",
	domain.FormatWAV:  "pcm_s16le",
	domain.FormatFLAC: "flac",
}

// FFmpegTranscoder converts local media files to audio formats by
// shelling out to ffmpeg. Progress is read from ffmpeg's machine
// readable progress stream on stdout, scaled against the input duration
// reported by ffprobe.
type FFmpegTranscoder struct {
	config *domain.TranscodeConfig
	logger *zap.Logger
}

// NewFFmpegTranscoder creates a transcoder using the configured ffmpeg
// and ffprobe binaries
func NewFFmpegTranscoder(config *domain.TranscodeConfig, logger *zap.Logger) *FFmpegTranscoder {
	return &FFmpegTranscoder{config: config, logger: logger}
}

// Run executes one conversion
func (t *FFmpegTranscoder) Run(ctx context.Context, req domain.TranscodeRequest, onProgress func(int)) error {
	if _, err := os.Stat(req.InputPath); err != nil {
		return fmt.Errorf("%w: input not readable: %v", domain.ErrTranscode, err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0755); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %v", domain.ErrTranscode, err)
	}

	duration, err := t.probeDuration(ctx, req.InputPath)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// without a duration progress stays at zero until completion
		t.logger.Warn("Failed to probe input duration",
			zap.String("task_id", req.TaskID),
			zap.String("input", req.InputPath),
			zap.Error(err))
	}

	args, err := t.buildArgs(req)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, t.config.FFmpegBinary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTranscode, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.logger.Debug("Starting ffmpeg",
		zap.String("task_id", req.TaskID),
		zap.String("command", ShellEscapeCommand(t.config.FFmpegBinary, args...)))

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start ffmpeg: %v", domain.ErrTranscode, err)
	}

	lastPercent := -1
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		percent, ok := parseProgressLine(scanner.Text(), duration)
		if !ok || percent == lastPercent {
			continue
		}
		lastPercent = percent
		if onProgress != nil {
			onProgress(percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		os.Remove(req.OutputPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrTranscode, err, tailLine(stderr.String()))
	}

	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// buildArgs assembles the ffmpeg invocation for a conversion request
func (t *FFmpegTranscoder) buildArgs(req domain.TranscodeRequest) ([]string, error) {
	codec, ok := audioCodecs[req.Options.Format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidOptions, req.Options.Format)
	}

	args := []string{
		"-y",
		"-i", req.InputPath,
		"-vn",
		"-c:a", codec,
	}
	if req.Options.BitrateKbps > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", req.Options.BitrateKbps))
	}
	if req.Options.SampleRateHz > 0 {
		args = append(args, "-ar", strconv.Itoa(req.Options.SampleRateHz))
	}
	if req.Options.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(req.Options.Channels))
	}
	if req.Options.Quality > 0 {
		args = append(args, "-q:a", strconv.Itoa(req.Options.Quality))
	}

	if t.config.ExtraArgs != "" {
		extra, err := shlex.Split(t.config.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed extra_args: %v", domain.ErrTranscode, err)
		}
		args = append(args, extra...)
	}

	args = append(args, "-progress", "pipe:1", "-nostats", req.OutputPath)
	return args, nil
}

// probeDuration asks ffprobe for the input duration in seconds
func (t *FFmpegTranscoder) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.config.FFprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration: %w", err)
	}
	return duration, nil
}

// parseProgressLine interprets one line of ffmpeg's -progress stream.
// Lines are key=value; out_time_us carries microseconds processed and
// progress=end marks completion.
func parseProgressLine(line string, durationSeconds float64) (int, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}

	switch key {
	case "progress":
		if value == "end" {
			return 100, true
		}
	case "out_time_us", "out_time_ms":
		// historical ffmpeg emits microseconds under both keys
		if durationSeconds <= 0 {
			return 0, false
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		percent := int(float64(us) / 1e6 / durationSeconds * 100)
		if percent > 100 {
			percent = 100
		}
		return percent, true
	}
	return 0, false
}

// tailLine returns the last non-empty line of command output
func tailLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ domain.TranscodeWorker = (*FFmpegTranscoder)(nil)
