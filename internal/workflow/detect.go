package workflow

import (
	"github.com/dangazineu/ghcollect/internal/errors"
)

// Detection is the outcome of looking for tests in a workflow.
type Detection int

const (
	// DetectionNotFound means the document was fully traversed without a match.
	DetectionNotFound Detection = iota
	// DetectionFound means a test keyword was found.
	DetectionFound
	// DetectionUnknown means traversal hit a structural problem before any match.
	DetectionUnknown
)

func (d Detection) String() string {
	switch d {
	case DetectionFound:
		return "found"
	case DetectionNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// HasTests reports whether the workflow name, a job key or a step name
// contains one of TestKeywords as a space-delimited token. Structural
// problems count as "no tests".
func (d *Document) HasTests() bool {
	detection, _ := d.Detect()
	return detection == DetectionFound
}

// Detect is HasTests with the structural failure kept distinguishable.
// Names are checked in document order and the first match wins, so a
// malformed job after a matching one does not hide the match.
func (d *Document) Detect() (Detection, error) {
	root, ok := d.root.(*Mapping)
	if !ok {
		return DetectionUnknown, errors.New(errors.CodeStructural, "workflow root is not a mapping")
	}

	name, err := scalarField(root, "name")
	if err != nil {
		return DetectionUnknown, err
	}
	if isTestName(name) {
		return DetectionFound, nil
	}

	jobs, err := mappingField(root, "jobs")
	if err != nil {
		return DetectionUnknown, err
	}
	for _, e := range jobs.Entries {
		if isTestName(e.Key.Value) {
			return DetectionFound, nil
		}

		job, ok := e.Value.(*Mapping)
		if !ok {
			return DetectionUnknown, errors.Newf(errors.CodeStructural, "job %q is not a mapping", e.Key.Value)
		}
		steps, err := sequenceField(job, "steps")
		if err != nil {
			return DetectionUnknown, errors.Wrap(err, errors.CodeStructural, "job "+e.Key.Value)
		}
		for i, s := range steps.Items {
			step, ok := s.(*Mapping)
			if !ok {
				return DetectionUnknown, errors.Newf(errors.CodeStructural, "job %q step %d is not a mapping", e.Key.Value, i)
			}
			stepName, err := scalarField(step, "name")
			if err != nil {
				return DetectionUnknown, errors.Wrap(err, errors.CodeStructural, "job "+e.Key.Value)
			}
			if isTestName(stepName) {
				return DetectionFound, nil
			}
		}
	}
	return DetectionNotFound, nil
}

// HasTestsFile loads path and reports HasTests. Unreadable or unparsable
// files count as "no tests".
func HasTestsFile(path string) bool {
	doc, err := Load(path)
	if err != nil {
		return false
	}
	return doc.HasTests()
}
