package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ogmp3/internal/apperr"
	"ogmp3/internal/models"
)

// ProgressCallback receives download progress parsed from yt-dlp output.
type ProgressCallback func(percent int, message string)

// Options configures the yt-dlp invocation.
type Options struct {
	Binary       string
	AudioFormat  string
	AudioQuality string
	Timeout      time.Duration
}

// Service wraps yt-dlp operations. Arguments are always passed as a vector;
// nothing goes through a shell.
type Service struct {
	logger *slog.Logger
	opts   Options
}

func NewService(logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "yt-dlp"
	}
	if strings.TrimSpace(opts.AudioFormat) == "" {
		opts.AudioFormat = "mp3"
	}
	if strings.TrimSpace(opts.AudioQuality) == "" {
		opts.AudioQuality = "0"
	}
	return &Service{logger: logger, opts: opts}
}

// Extension is the file extension of produced artifacts, with the leading dot.
func (s *Service) Extension() string {
	format := strings.ToLower(s.opts.AudioFormat)
	if ext, ok := containerExt[format]; ok {
		return ext
	}
	return "." + format
}

// containerExt lists codecs whose file extension differs from the format name.
var containerExt = map[string]string{
	"aac":    ".m4a",
	"vorbis": ".ogg",
	"alac":   ".m4a",
}

// Binary returns the configured executable.
func (s *Service) Binary() string {
	return s.opts.Binary
}

// ExtractAudio downloads url and converts it to audio at outputTemplate, which
// must contain the %(ext)s placeholder.
func (s *Service) ExtractAudio(ctx context.Context, url, outputTemplate string, cb ProgressCallback) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// 0% is reported up front, so the tool's own 0% line is not repeated
	progress := &progressWriter{logger: s.logger, last: 0, cb: cb}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.opts.Binary, extractArgs(s.opts, outputTemplate, url)...)
	killGroup(cmd)
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdout = progress
	cmd.Stderr = &stderr

	if cb != nil {
		cb(0, "starting conversion")
	}

	runErr := cmd.Run()
	progress.flush()
	if err := s.runError(ctx, runErr, lastLine(&stderr)); err != nil {
		return err
	}

	if cb != nil && progress.last != 100 {
		cb(100, "conversion finished")
	}
	return nil
}

// FetchInfo asks yt-dlp for the JSON metadata of url without downloading it.
func (s *Service) FetchInfo(ctx context.Context, url string) (models.VideoInfo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.opts.Binary, "-j", "--no-playlist", "--no-warnings", "--", url)
	killGroup(cmd)
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if err := s.runError(ctx, runErr, lastLine(&stderr)); err != nil {
		return models.VideoInfo{}, err
	}
	return parseInfo(stdout.Bytes())
}

// Version returns the yt-dlp version string.
func (s *Service) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.opts.Binary, "--version").Output()
	if err != nil {
		return "", apperr.Wrap(apperr.ErrToolExecution, s.toolName(), "version", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// runError classifies a failed run. Messages name the tool, never its path,
// because they reach HTTP clients.
func (s *Service) runError(ctx context.Context, err error, stderrLine string) error {
	if err == nil {
		return nil
	}
	tool := s.toolName()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Timeout(tool, s.opts.Timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return apperr.Wrap(apperr.ErrToolExecution, tool, "canceled", ctx.Err())
	}
	if stderrLine != "" {
		return apperr.Wrap(apperr.ErrToolExecution, tool, stderrLine, nil)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return apperr.Wrap(apperr.ErrToolExecution, tool, "exit status "+strconv.Itoa(exitErr.ExitCode()), nil)
	}
	return apperr.Wrap(apperr.ErrToolExecution, tool, "could not be started", nil)
}

func (s *Service) toolName() string {
	return filepath.Base(s.opts.Binary)
}

func extractArgs(opts Options, outputTemplate, url string) []string {
	return []string{
		"-x",
		"--audio-format", opts.AudioFormat,
		"--audio-quality", opts.AudioQuality,
		"--no-playlist",
		"--newline",
		"-o", outputTemplate,
		"--", url,
	}
}

// parseProgress reads lines like "[download]  42.3% of 3.21MiB at 1.2MiB/s".
func parseProgress(line string) (int, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, "[download]"))
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return 0, false
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return int(value), true
}

func parseInfo(raw []byte) (models.VideoInfo, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.VideoInfo{}, apperr.Wrap(apperr.ErrParsing, "info", "empty output", nil)
	}
	// playlists print one object per line; the first entry is enough
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	var info models.VideoInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return models.VideoInfo{}, apperr.Wrap(apperr.ErrParsing, "info", "decode metadata", err)
	}
	return info, nil
}

func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// progressWriter splits yt-dlp stdout into lines and reports percentage changes.
type progressWriter struct {
	logger  *slog.Logger
	cb      ProgressCallback
	last    int
	pending []byte
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.pending = append(p.pending, b...)
	for {
		i := bytes.IndexAny(p.pending, "\r\n")
		if i < 0 {
			break
		}
		p.line(string(p.pending[:i]))
		p.pending = p.pending[i+1:]
	}
	return len(b), nil
}

func (p *progressWriter) flush() {
	if len(p.pending) > 0 {
		p.line(string(p.pending))
		p.pending = nil
	}
}

func (p *progressWriter) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	p.logger.Debug("yt-dlp output", "line", line)
	percent, ok := parseProgress(line)
	if !ok || percent == p.last {
		return
	}
	p.last = percent
	if p.cb != nil {
		p.cb(percent, "downloading")
	}
}
