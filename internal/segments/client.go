package segments

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sys/unix"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithArgs prepends fixed arguments to every extractor invocation.
func WithArgs(args ...string) Option {
	return func(c *Client) {
		c.baseArgs = append([]string(nil), args...)
	}
}

// Client drives the external segment extractor binary.
//
//	<binary> [args] segments --kind <kind> <source>
//	<binary> [args] extract --kind <kind> --index <n> --cache <dir> --output <name> <source>
//
// The listing prints a JSON array; extraction prints the produced path as
// its last non-empty stdout line.
type Client struct {
	binary   string
	baseArgs []string
	exec     Executor
}

// New constructs an extractor client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("extractor binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured extractor executable.
func (c *Client) Binary() string {
	return c.binary
}

type wireSegment struct {
	StartTime   json.RawMessage `json:"start_time"`
	EndTime     json.RawMessage `json:"end_time"`
	StartOffset *int64          `json:"start_offset"`
	EndOffset   *int64          `json:"end_offset"`
	FilePath    string          `json:"file_path"`
	Duration    float64         `json:"duration"`
}

// ListSegments returns the ordered segments for sourcePath.
func (c *Client) ListSegments(ctx context.Context, sourcePath string, kind Kind) ([]Segment, error) {
	args := c.args("segments", "--kind", kind.String(), sourcePath)
	var out bytes.Buffer
	if err := c.exec.Run(ctx, c.binary, args, func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
	}); err != nil {
		return nil, fmt.Errorf("list %s segments: %w", kind, err)
	}
	return decodeSegments(out.Bytes())
}

// Extract asks the extractor to materialize one segment.
func (c *Client) Extract(ctx context.Context, sourcePath string, kind Kind, index int, cacheDir, outputName string) (string, error) {
	if strings.TrimSpace(outputName) == "" {
		return "", errors.New("output name required")
	}
	args := c.args("extract",
		"--kind", kind.String(),
		"--index", strconv.Itoa(index),
		"--cache", cacheDir,
		"--output", outputName,
		sourcePath,
	)
	var last string
	if err := c.exec.Run(ctx, c.binary, args, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			last = trimmed
		}
	}); err != nil {
		return "", fmt.Errorf("extract %s segment %d: %w", kind, index, err)
	}
	switch {
	case last == "":
		return filepath.Join(cacheDir, outputName), nil
	case filepath.IsAbs(last):
		return last, nil
	default:
		return filepath.Join(cacheDir, last), nil
	}
}

func (c *Client) args(rest ...string) []string {
	args := make([]string, 0, len(c.baseArgs)+len(rest))
	args = append(args, c.baseArgs...)
	return append(args, rest...)
}

func decodeSegments(data []byte) ([]Segment, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var wire []wireSegment
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode segment listing: %w", err)
	}
	out := make([]Segment, 0, len(wire))
	for _, w := range wire {
		seg := Segment{
			FilePath: strings.TrimSpace(w.FilePath),
			Duration: time.Duration(w.Duration * float64(time.Second)),
		}
		seg.Native, seg.StartText = decodeTime(w.StartTime)
		_, seg.EndText = decodeTime(w.EndTime)
		if w.StartOffset != nil && w.EndOffset != nil {
			seg.StartOffset = *w.StartOffset
			seg.EndOffset = *w.EndOffset
			seg.HasOffsets = true
		}
		out = append(out, seg)
	}
	return out, nil
}

// decodeTime accepts a JSON string, a unix timestamp in seconds, or null.
// Values of any other shape are kept as text so they surface as unparsable.
func decodeTime(raw json.RawMessage) (*time.Time, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return nil, text
	}
	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err == nil && !math.IsNaN(seconds) && !math.IsInf(seconds, 0) {
		whole, frac := math.Modf(seconds)
		ts := time.Unix(int64(whole), int64(frac*float64(time.Second)))
		return &ts, ""
	}
	return nil, string(raw)
}

const (
	maxLineBytes = 16 << 20
	stderrTail   = 20
	waitDelay    = 5 * time.Second
)

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	// Wrapper scripts fork the real decoder; cancellation kills the whole group.
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var tailMu sync.Mutex
	var tail []string

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, func(line string) {
		if onStdout != nil {
			onStdout(line)
		}
	})
	go scan(stderr, func(line string) {
		tailMu.Lock()
		defer tailMu.Unlock()
		tail = append(tail, line)
		if len(tail) > stderrTail {
			tail = tail[len(tail)-stderrTail:]
		}
	})

	wg.Wait()
	if scanErr != nil {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("wait command: %w", ctxErr)
		}
		if msg := strings.TrimSpace(strings.Join(tail, "\n")); msg != "" {
			return fmt.Errorf("wait command: %w: %s", err, msg)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
