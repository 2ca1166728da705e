// Package collect drives the per-repository pipeline: metadata lookup,
// clone, workflow rewrite, sandboxed run and the JSON record.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dangazineu/ghcollect/internal/actions"
	"github.com/dangazineu/ghcollect/internal/errors"
	"github.com/dangazineu/ghcollect/internal/forge"
	"github.com/dangazineu/ghcollect/internal/git"
	"github.com/dangazineu/ghcollect/internal/sandbox"
)

// MetadataSource looks up repository metadata.
type MetadataSource interface {
	Repository(ctx context.Context, fullName string) (*forge.Repository, error)
}

// WorkflowRunner runs one workflow of a checkout.
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, repoPath, workflowPath string) (*sandbox.RunOutcome, error)
}

// CloneFunc checks url out into path.
type CloneFunc func(ctx context.Context, url, path string) error

// Record is the JSON document written for every collected repository.
type Record struct {
	Repository          string         `json:"repository"`
	Stars               int            `json:"stars"`
	Language            string         `json:"language"`
	Size                int            `json:"size"`
	CloneURL            string         `json:"clone_url"`
	Timestamp           string         `json:"timestamp"`
	CloneSuccess        bool           `json:"clone_success"`
	NumberOfActions     int            `json:"number_of_actions"`
	NumberOfTestActions int            `json:"number_of_test_actions"`
	ActionsSuccessful   bool           `json:"actions_successful"`
	ActionsRun          map[string]any `json:"actions_run,omitempty"`
	Error               string         `json:"error,omitempty"`
}

// Options configures a Collector.
type Options struct {
	Metadata MetadataSource
	Runner   WorkflowRunner
	// Clone defaults to a shallow git clone.
	Clone   CloneFunc
	OutDir  string
	WorkDir string
	// RunID groups the clones of this run under WorkDir. Generated when empty.
	RunID string
	// SkipRun prepares the test workflow without executing it.
	SkipRun bool
	Logger  zerolog.Logger
}

// Collector processes repositories one at a time.
type Collector struct {
	metadata MetadataSource
	runner   WorkflowRunner
	clone    CloneFunc
	outDir   string
	workDir  string
	runID    string
	skipRun  bool
	logger   zerolog.Logger
}

// New creates a collector and makes sure the output directory exists.
func New(opts Options) (*Collector, error) {
	if opts.Metadata == nil {
		return nil, fmt.Errorf("metadata source is required")
	}
	if opts.Runner == nil && !opts.SkipRun {
		return nil, fmt.Errorf("workflow runner is required")
	}
	if opts.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "could not create output directory "+opts.OutDir)
	}

	runID := opts.RunID
	if runID == "" {
		runID = GenerateRunID()
	} else if _, _, err := ParseRunID(runID); err != nil {
		return nil, err
	}

	c := &Collector{
		metadata: opts.Metadata,
		runner:   opts.Runner,
		clone:    opts.Clone,
		outDir:   opts.OutDir,
		workDir:  opts.WorkDir,
		runID:    runID,
		skipRun:  opts.SkipRun,
		logger:   opts.Logger,
	}
	if c.clone == nil {
		c.clone = git.Clone
	}
	if c.workDir == "" {
		c.workDir = os.TempDir()
	}
	return c, nil
}

// RunID returns the identifier of this collection run.
func (c *Collector) RunID() string {
	return c.runID
}

// WorkDir returns the folder holding the run directories.
func (c *Collector) WorkDir() string {
	return c.workDir
}

// RecordName turns "owner/repo" into the "owner-repo" used for clone
// directories and record files.
func RecordName(fullName string) string {
	return strings.ReplaceAll(fullName, "/", "-")
}

// RecordPath returns where the record of fullName is written.
func (c *Collector) RecordPath(fullName string) string {
	return filepath.Join(c.outDir, RecordName(fullName)+".json")
}

// HandleRepo collects one repository. Once metadata is known the record is
// written whatever happens next, and the clone is always removed. A failure
// after that point is returned together with the record.
func (c *Collector) HandleRepo(ctx context.Context, fullName string) (*Record, error) {
	repo, err := c.metadata.Repository(ctx, fullName)
	if err != nil {
		return nil, err
	}

	record := &Record{
		Repository: repo.FullName,
		Stars:      repo.Stars,
		Language:   repo.Language,
		Size:       repo.Size,
		CloneURL:   repo.CloneURL,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	logger := c.logger.With().Str("repo", repo.FullName).Str("run_id", c.runID).Logger()

	repoPath := filepath.Join(c.workDir, c.runID, RecordName(repo.FullName))
	logger.Info().Str("clone_url", repo.CloneURL).Msg("cloning repository")

	var runErr error
	if err := c.clone(ctx, repo.CloneURL, repoPath); err != nil {
		runErr = errors.Wrap(err, errors.CodeIO, "could not clone "+repo.FullName)
	} else {
		record.CloneSuccess = true
		runErr = c.process(ctx, logger, repoPath, record)
	}
	if err := git.Remove(repoPath); err != nil {
		logger.Warn().Err(err).Msg("could not remove clone")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("error while processing repository")
		record.Error = runErr.Error()
	}
	if err := c.save(record); err != nil {
		return record, err
	}
	return record, runErr
}

func (c *Collector) process(ctx context.Context, logger zerolog.Logger, repoPath string, record *Record) error {
	set, err := actions.Discover(repoPath, logger)
	if err != nil {
		return err
	}
	record.NumberOfActions = len(set.Workflows)
	record.NumberOfTestActions = len(set.TestWorkflows)

	if err := set.RemoveUnsupportedOS(); err != nil {
		logger.Warn().Err(err).Msg("some workflows were left unchanged")
	}
	if err := set.Save(); err != nil {
		return err
	}

	logger.Info().
		Int("workflows", record.NumberOfActions).
		Int("test_workflows", record.NumberOfTestActions).
		Msg("discovered workflows")
	if len(set.TestWorkflows) != 1 {
		return nil
	}

	// act names containers after the workflow content; a unique name keeps
	// concurrent collections of the same repository apart.
	wf := set.TestWorkflows[0]
	if err := wf.Doc.SetName(uuid.NewString()); err != nil {
		return err
	}
	if err := set.Save(); err != nil {
		return err
	}

	if c.skipRun {
		logger.Warn().Str("workflow", wf.RelPath).Msg("skipping workflow run")
		return nil
	}

	logger.Info().Str("workflow", wf.RelPath).Msg("running test workflow")
	outcome, err := c.runner.RunWorkflow(ctx, repoPath, wf.RelPath)
	if err != nil {
		return err
	}
	record.ActionsSuccessful = !outcome.Failed
	record.ActionsRun = outcome.AsMap()
	return nil
}

func (c *Collector) save(record *Record) error {
	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return fmt.Errorf("could not encode record: %w", err)
	}
	path := c.RecordPath(record.Repository)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeIO, "could not write "+path)
	}
	return nil
}
