package sandbox

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dangazineu/ghcollect/internal/errors"
	"github.com/dangazineu/ghcollect/internal/junit"
)

// DefaultBinary is the act executable looked up on PATH.
const DefaultBinary = "act"

// DefaultResultsDir is where surefire writes its reports.
const DefaultResultsDir = "target/surefire-reports"

// outputTail bounds the stdout/stderr kept in a RunOutcome.
const outputTail = 64 * 1024

// DefaultPlatforms maps runner labels to the images act uses for them, so
// act never prompts for or lazily pulls an environment.
func DefaultPlatforms() map[string]string {
	return map[string]string{
		"ubuntu-latest": "catthehacker/ubuntu:full-latest",
		"ubuntu-22.04":  "catthehacker/ubuntu:act-22.04",
		"ubuntu-20.04":  "catthehacker/ubuntu:full-20.04",
		"ubuntu-18.04":  "catthehacker/ubuntu:full-18.04",
	}
}

// Runner executes workflows locally with act.
type Runner struct {
	binary      string
	platforms   map[string]string
	resultsDirs []string
	cacheDir    string
	env         []string
	logger      zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinary sets the act executable.
func WithBinary(path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithPlatforms replaces the label to image mapping.
func WithPlatforms(platforms map[string]string) Option {
	return func(r *Runner) {
		if len(platforms) > 0 {
			r.platforms = platforms
		}
	}
}

// WithResultsDirs sets the report directories, relative to the repository.
func WithResultsDirs(dirs ...string) Option {
	return func(r *Runner) {
		if len(dirs) > 0 {
			r.resultsDirs = dirs
		}
	}
}

// WithCacheDir gives act its own cache directory through XDG_CACHE_HOME.
// Concurrent runners must not share one.
func WithCacheDir(dir string) Option {
	return func(r *Runner) {
		r.cacheDir = dir
	}
}

// WithEnv adds KEY=VALUE pairs to the act environment.
func WithEnv(env ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner with the default platforms and results dir.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		binary:      DefaultBinary,
		platforms:   DefaultPlatforms(),
		resultsDirs: []string{DefaultResultsDir},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOutcome is the result of one act invocation.
type RunOutcome struct {
	Workflow     string
	ExitCode     int
	Failed       bool
	Stdout       string
	Stderr       string
	StartTime    time.Time
	EndTime      time.Time
	FailedTests  []junit.TestOutcome
	ReportErrors []string
}

// Duration returns the wall time of the run.
func (o *RunOutcome) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// AsMap returns the outcome in the shape stored in collection records.
func (o *RunOutcome) AsMap() map[string]any {
	tests := make([]map[string]string, 0, len(o.FailedTests))
	for _, t := range o.FailedTests {
		tests = append(tests, map[string]string{
			"classname": t.ClassName,
			"type":      t.Type,
			"message":   t.Message,
		})
	}
	return map[string]any{
		"workflow":      o.Workflow,
		"return_code":   o.ExitCode,
		"failed":        o.Failed,
		"duration":      o.Duration().Seconds(),
		"failed_tests":  tests,
		"report_errors": o.ReportErrors,
		"stdout":        o.Stdout,
		"stderr":        o.Stderr,
	}
}

// BuildArgs returns the act arguments for one workflow. Platforms are
// emitted in label order so the command line is stable.
func (r *Runner) BuildArgs(workflowPath string) []string {
	labels := make([]string, 0, len(r.platforms))
	for label := range r.platforms {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	args := make([]string, 0, 2*len(labels)+4)
	for _, label := range labels {
		args = append(args, "-P", fmt.Sprintf("%s=%s", label, r.platforms[label]))
	}
	args = append(args, "--bind", "--rm")
	args = append(args, "-W", workflowPath)
	return args
}

// RunWorkflow runs a single workflow in repoPath and blocks until act exits.
// A non-zero exit is reported in the outcome, not as an error; only failing
// to start act is an error. Reports are collected whatever the exit code.
func (r *Runner) RunWorkflow(ctx context.Context, repoPath, workflowPath string) (*RunOutcome, error) {
	args := r.BuildArgs(workflowPath)
	logger := r.logger.With().Str("repo", repoPath).Str("workflow", workflowPath).Logger()
	logger.Debug().Str("command", r.binary+" "+strings.Join(args, " ")).Msg("starting act")

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = repoPath
	cmd.Stdin = nil
	cmd.Env = r.environ()

	stdout := &tailBuffer{limit: outputTail}
	stderr := &tailBuffer{limit: outputTail}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	outcome := &RunOutcome{
		Workflow:  workflowPath,
		StartTime: time.Now(),
	}
	err := cmd.Run()
	outcome.EndTime = time.Now()
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()

	if ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), errors.CodeProcess, "act interrupted for "+workflowPath)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return nil, errors.Wrap(err, errors.CodeProcess, fmt.Sprintf("failed to run %s for %s", r.binary, workflowPath))
		}
		outcome.ExitCode = exitErr.ExitCode()
		outcome.Failed = true
	}

	for _, dir := range r.resultsDirs {
		failed, skipped := junit.CollectTolerant(filepath.Join(repoPath, dir))
		outcome.FailedTests = append(outcome.FailedTests, failed...)
		for _, e := range skipped {
			logger.Warn().Err(e).Msg("skipping unreadable test report")
			outcome.ReportErrors = append(outcome.ReportErrors, e.Error())
		}
	}

	logger.Info().
		Int("exit_code", outcome.ExitCode).
		Int("failed_tests", len(outcome.FailedTests)).
		Dur("duration", outcome.Duration()).
		Msg("act finished")
	return outcome, nil
}

// RunWorkflows runs workflows one after another. act names its containers
// after workflow content, so runs must not overlap.
func (r *Runner) RunWorkflows(ctx context.Context, repoPath string, workflowPaths []string) ([]*RunOutcome, error) {
	outcomes := make([]*RunOutcome, 0, len(workflowPaths))
	for _, wf := range workflowPaths {
		outcome, err := r.RunWorkflow(ctx, repoPath, wf)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (r *Runner) environ() []string {
	env := os.Environ()
	if r.cacheDir != "" {
		env = append(env, "XDG_CACHE_HOME="+r.cacheDir)
	}
	return append(env, r.env...)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.limit {
		t.buf.Reset()
		t.buf.Write(p[len(p)-t.limit:])
		return n, nil
	}
	if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
