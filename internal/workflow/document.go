package workflow

import (
	"bytes"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dangazineu/ghcollect/internal/errors"
)

// DefaultTarget replaces every unsupported execution target.
const DefaultTarget = "ubuntu-latest"

// UnsupportedTargets are runner labels the local sandbox cannot emulate.
var UnsupportedTargets = []string{
	"windows-latest",
	"windows-2022",
	"windows-2019",
	"macos-13",
	"macos-13-xl",
	"macos-latest",
	"macos-12",
	"macos-latest-xl",
	"macos-12-xl",
	"macos-11",
}

// TestKeywords are the whole-word tokens that mark a name as test-related.
var TestKeywords = []string{"test", "tests", "testing"}

// Document is a GitHub Actions workflow held as a typed node tree.
// A Document is not safe for concurrent mutation.
type Document struct {
	path string
	root Node
}

// Job is a read-only view of one entry of the jobs mapping.
type Job struct {
	ID        string
	RunsOn    string
	StepNames []string
}

// Load reads and parses the workflow at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "could not read workflow "+path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// Parse parses workflow YAML.
func Parse(data []byte) (*Document, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "could not unmarshal workflow")
	}
	var root Node
	if n.Kind != 0 {
		var err error
		root, err = fromYAML(&n)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, "could not convert workflow")
		}
	}
	return &Document{root: root}, nil
}

// Path returns the file the document was loaded from, if any.
func (d *Document) Path() string {
	return d.path
}

// Root returns the top-level node, nil for an empty document.
func (d *Document) Root() Node {
	return d.root
}

// Name returns the top-level name, or "" when absent or not a scalar.
func (d *Document) Name() string {
	root, ok := d.root.(*Mapping)
	if !ok {
		return ""
	}
	name, err := scalarField(root, "name")
	if err != nil {
		return ""
	}
	return name
}

// SetName overwrites the top-level name. The sandbox derives container
// names from workflow content, so a unique name gives each run its own identity.
func (d *Document) SetName(name string) error {
	root, ok := d.root.(*Mapping)
	if !ok {
		return errors.New(errors.CodeStructural, "workflow root is not a mapping")
	}
	root.Set("name", NewString(name))
	return nil
}

// Jobs returns the jobs in document order. Malformed jobs are skipped.
func (d *Document) Jobs() []Job {
	root, ok := d.root.(*Mapping)
	if !ok {
		return nil
	}
	jobs, err := mappingField(root, "jobs")
	if err != nil {
		return nil
	}
	out := make([]Job, 0, len(jobs.Entries))
	for _, e := range jobs.Entries {
		job := Job{ID: e.Key.Value}
		if m, ok := e.Value.(*Mapping); ok {
			job.RunsOn, _ = scalarField(m, "runs-on")
			if steps, err := sequenceField(m, "steps"); err == nil {
				for _, s := range steps.Items {
					if sm, ok := s.(*Mapping); ok {
						if name, err := scalarField(sm, "name"); err == nil {
							job.StepNames = append(job.StepNames, name)
						}
					}
				}
			}
		}
		out = append(out, job)
	}
	return out
}

// Marshal serializes the document to YAML.
func (d *Document) Marshal() ([]byte, error) {
	if d.root == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAML(d.root)); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "could not marshal workflow")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "could not marshal workflow")
	}
	return buf.Bytes(), nil
}

// Save writes the document to path, which may differ from the source path.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeIO, "could not write workflow "+path)
	}
	return nil
}

func field(m *Mapping, key string) (Node, error) {
	n, ok := m.Get(key)
	if !ok {
		return nil, errors.Newf(errors.CodeStructural, "missing key %q", key)
	}
	return n, nil
}

func scalarField(m *Mapping, key string) (string, error) {
	n, err := field(m, key)
	if err != nil {
		return "", err
	}
	s, ok := n.(*Scalar)
	if !ok || s.IsNull() {
		return "", errors.Newf(errors.CodeStructural, "key %q is not a scalar", key)
	}
	return s.Value, nil
}

func mappingField(m *Mapping, key string) (*Mapping, error) {
	n, err := field(m, key)
	if err != nil {
		return nil, err
	}
	v, ok := n.(*Mapping)
	if !ok {
		return nil, errors.Newf(errors.CodeStructural, "key %q is not a mapping", key)
	}
	return v, nil
}

func sequenceField(m *Mapping, key string) (*Sequence, error) {
	n, err := field(m, key)
	if err != nil {
		return nil, err
	}
	v, ok := n.(*Sequence)
	if !ok {
		return nil, errors.Newf(errors.CodeStructural, "key %q is not a sequence", key)
	}
	return v, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isTestName(name string) bool {
	for _, word := range strings.Split(name, " ") {
		if contains(TestKeywords, word) {
			return true
		}
	}
	return false
}
