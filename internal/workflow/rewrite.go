package workflow

import (
	"github.com/dangazineu/ghcollect/internal/errors"
)

// RemoveUnsupportedOS rewrites execution targets the sandbox cannot run.
// A job's scalar runs-on is replaced with DefaultTarget. Inside a job's
// strategy, mapping values are replaced while sequence entries are dropped:
// a keyed field must stay valid, a list of targets just loses the bad ones.
// A document without a jobs mapping is an error.
func (d *Document) RemoveUnsupportedOS() error {
	root, ok := d.root.(*Mapping)
	if !ok {
		return errors.New(errors.CodeStructural, "workflow root is not a mapping")
	}
	jobs, err := mappingField(root, "jobs")
	if err != nil {
		return err
	}

	r := targetRewriter{unsupported: UnsupportedTargets, replacement: DefaultTarget}
	for _, e := range jobs.Entries {
		job, ok := e.Value.(*Mapping)
		if !ok {
			return errors.Newf(errors.CodeStructural, "job %q is not a mapping", e.Key.Value)
		}
		if runsOn, ok := job.Get("runs-on"); ok && r.matches(runsOn) {
			job.Set("runs-on", NewString(r.replacement))
		}
		if strategy, ok := job.Get("strategy"); ok {
			r.visit(strategy)
		}
	}
	return nil
}

type targetRewriter struct {
	unsupported []string
	replacement string
}

func (r targetRewriter) matches(n Node) bool {
	s, ok := n.(*Scalar)
	return ok && contains(r.unsupported, s.Value)
}

func (r targetRewriter) visit(n Node) {
	switch v := n.(type) {
	case *Mapping:
		for i := range v.Entries {
			if r.matches(v.Entries[i].Value) {
				v.Entries[i].Value = NewString(r.replacement)
				continue
			}
			r.visit(v.Entries[i].Value)
		}
	case *Sequence:
		kept := v.Items[:0]
		for _, item := range v.Items {
			if !r.matches(item) {
				kept = append(kept, item)
			}
		}
		// clear the tail so dropped nodes are not retained
		for i := len(kept); i < len(v.Items); i++ {
			v.Items[i] = nil
		}
		v.Items = kept
		for _, item := range v.Items {
			r.visit(item)
		}
	case *Scalar:
	}
}
