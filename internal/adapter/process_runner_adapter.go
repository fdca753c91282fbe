package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	m "github.com/tempo-ml/tempo/internal/model"
)

// ProcessResult is the low-level outcome of one child process run.
type ProcessResult struct {
	ExitCode  int
	StartTime time.Time
	EndTime   time.Time
	TimedOut  bool
}

// ProcessRunner abstracts launching the target training script as a child
// process with a controlled environment and a streamed log.
type ProcessRunner interface {
	// Run starts argv[0] with the given args inside workDir, env appended to
	// the parent environment, and interleaved stdout/stderr streamed to
	// logPath as the child produces it. Run blocks until the child exits or
	// ctx is done; on ctx expiry the child is killed and TimedOut is set.
	// A non-zero exit is reported through ExitCode, not through err.
	Run(ctx context.Context, workDir m.Path, argv []string, env []string, logPath m.Path) (ProcessResult, error)
}

// LocalProcessRunner backs ProcessRunner with os/exec.
type LocalProcessRunner struct{}

// NewLocalProcessRunner constructs a LocalProcessRunner.
func NewLocalProcessRunner() *LocalProcessRunner {
	return &LocalProcessRunner{}
}

// Run executes the child and streams its combined output to logPath.
func (r *LocalProcessRunner) Run(ctx context.Context, workDir m.Path, argv []string, env []string, logPath m.Path) (ProcessResult, error) {
	if len(argv) == 0 {
		return ProcessResult{}, errors.New("empty command")
	}

	logFile, err := os.OpenFile(string(logPath), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return ProcessResult{}, err
	}

	defer func() { _ = logFile.Close() }()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 - caller-assembled command
	cmd.Dir = string(workDir)
	cmd.Env = append(os.Environ(), env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ProcessResult{}, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ProcessResult{}, err
	}

	start := time.Now().UTC()
	if err := cmd.Start(); err != nil {
		return ProcessResult{}, err
	}

	// Training runs can be long and verbose; copy incrementally instead of
	// buffering the whole run. Interleaving order between the two streams is
	// whatever arrives first.
	sink := &syncWriter{w: logFile}

	var g errgroup.Group

	g.Go(func() error {
		_, copyErr := io.Copy(sink, stdout)
		return copyErr
	})
	g.Go(func() error {
		_, copyErr := io.Copy(sink, stderr)
		return copyErr
	})

	copyErr := g.Wait()
	waitErr := cmd.Wait()
	end := time.Now().UTC()

	result := ProcessResult{
		StartTime: start,
		EndTime:   end,
		TimedOut:  ctx.Err() != nil,
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else if !result.TimedOut {
			return result, waitErr
		}
	}

	if result.TimedOut {
		// exec.CommandContext killed the child; exit code is meaningless.
		result.ExitCode = -1
		return result, nil
	}

	if copyErr != nil && !errors.Is(copyErr, os.ErrClosed) {
		return result, copyErr
	}

	return result, nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p)
}
