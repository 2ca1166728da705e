// Package actions discovers the GitHub Actions workflows of a checkout.
package actions

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dangazineu/ghcollect/internal/errors"
	"github.com/dangazineu/ghcollect/internal/workflow"
)

// WorkflowsDir is where GitHub looks for workflow definitions.
const WorkflowsDir = ".github/workflows"

// Workflow is a parsed workflow file of a repository.
type Workflow struct {
	// RelPath is relative to the repository root, as act expects it.
	RelPath string
	Doc     *workflow.Document
}

// Set holds the parsable workflows of one repository.
type Set struct {
	RepoPath      string
	Workflows     []*Workflow
	TestWorkflows []*Workflow
}

// Discover loads every workflow under WorkflowsDir in file name order.
// Unparsable files are logged and left out. A repository without the
// directory has an empty set.
func Discover(repoPath string, logger zerolog.Logger) (*Set, error) {
	set := &Set{RepoPath: repoPath}

	dir := filepath.Join(repoPath, WorkflowsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, errors.Wrap(err, errors.CodeIO, "could not list "+dir)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) {
			continue
		}
		rel := filepath.ToSlash(filepath.Join(WorkflowsDir, name))
		doc, err := workflow.Load(filepath.Join(repoPath, rel))
		if err != nil {
			logger.Warn().Err(err).Str("workflow", rel).Msg("skipping unparsable workflow")
			continue
		}
		wf := &Workflow{RelPath: rel, Doc: doc}
		set.Workflows = append(set.Workflows, wf)
		if doc.HasTests() {
			set.TestWorkflows = append(set.TestWorkflows, wf)
		}
	}
	return set, nil
}

// RemoveUnsupportedOS rewrites every workflow. All workflows are attempted;
// the failures are returned together.
func (s *Set) RemoveUnsupportedOS() error {
	var errs []error
	for _, wf := range s.Workflows {
		if err := wf.Doc.RemoveUnsupportedOS(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", wf.RelPath, err))
		}
	}
	return stderrors.Join(errs...)
}

// Save writes every workflow back to where it was loaded from.
func (s *Set) Save() error {
	for _, wf := range s.Workflows {
		if err := wf.Doc.Save(filepath.Join(s.RepoPath, wf.RelPath)); err != nil {
			return err
		}
	}
	return nil
}
