// Package junit extracts failed test cases from JUnit-style XML reports.
package junit

import (
	"encoding/xml"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/dangazineu/ghcollect/internal/errors"
)

// ReportExtension selects report files during a walk.
const ReportExtension = ".xml"

// TestOutcome is one failed test case.
type TestOutcome struct {
	ClassName string `json:"classname"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

// element is a generic XML element; only tags, attributes and child
// order matter for reports.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func (e *element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (e *element) children(tag string) []*element {
	var out []*element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == tag {
			out = append(out, &e.Children[i])
		}
	}
	return out
}

// Parse reads one report. Only a testcase whose first child element is
// <failure> is reported; failures listed after another child are not seen.
func Parse(r io.Reader) ([]TestOutcome, error) {
	var root element
	dec := xml.NewDecoder(r)
	// surefire and some python runners declare non UTF-8 encodings
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&root); err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "could not decode report")
	}

	suites := []*element{&root}
	if root.XMLName.Local == "testsuites" {
		suites = root.children("testsuite")
	}

	var failed []TestOutcome
	for _, suite := range suites {
		for _, testcase := range suite.children("testcase") {
			if len(testcase.Children) == 0 {
				continue
			}
			first := &testcase.Children[0]
			if first.XMLName.Local != "failure" {
				continue
			}
			failed = append(failed, TestOutcome{
				ClassName: testcase.attr("classname"),
				Type:      first.attr("type"),
				Message:   first.attr("message"),
			})
		}
	}
	return failed, nil
}

// ParseFile reads the report at path.
func ParseFile(path string) ([]TestOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "could not open report "+path)
	}
	defer f.Close()

	failed, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParse, "invalid report "+path)
	}
	return failed, nil
}

// Collect walks root and returns the failures of every report file in walk
// order. The first unparsable report aborts the walk. A missing root yields
// no failures.
func Collect(root string) ([]TestOutcome, error) {
	var failed []TestOutcome
	err := walkReports(root, func(path string) error {
		outcomes, err := ParseFile(path)
		if err != nil {
			return err
		}
		failed = append(failed, outcomes...)
		return nil
	})
	if err != nil {
		return failed, err
	}
	return failed, nil
}

// CollectTolerant is Collect for bulk use: unreadable or unparsable reports
// are skipped and returned as errors so the remaining reports still count.
func CollectTolerant(root string) ([]TestOutcome, []error) {
	var failed []TestOutcome
	var skipped []error
	err := walkReports(root, func(path string) error {
		outcomes, err := ParseFile(path)
		if err != nil {
			skipped = append(skipped, err)
			return nil
		}
		failed = append(failed, outcomes...)
		return nil
	})
	if err != nil {
		skipped = append(skipped, err)
	}
	return failed, skipped
}

func walkReports(root string, fn func(path string) error) error {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.CodeIO, "could not stat "+root)
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(err, errors.CodeIO, "could not walk "+path)
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ReportExtension) {
			return nil
		}
		return fn(path)
	})
	return err
}
