// Package e2e holds the scenarios the end-to-end test runs against a built
// ghcollect binary.
package e2e

// RepoPlaceholder in Args is replaced with the path of the scenario checkout.
const RepoPlaceholder = "{{repo}}"

type TestCase struct {
	Name string
	// Files make up the checkout, keyed by path relative to its root.
	Files map[string]string
	Args  []string
	// RequiresAct marks scenarios that start containers through act.
	RequiresAct    bool
	ExpectError    bool
	ExpectedOutput []string
}

const testsWorkflow = `name: tests
on: push
jobs:
  unit:
    runs-on: ${{ matrix.os }}
    strategy:
      matrix:
        os: [ubuntu-latest, windows-latest, macos-12]
    steps:
      - name: Write report
        run: |
          mkdir -p target/surefire-reports
          cat > target/surefire-reports/TEST-CalcTest.xml <<'XML'
          <testsuite name="CalcTest"><testcase classname="com.example.CalcTest" name="div"><failure type="java.lang.ArithmeticException" message="/ by zero"/></testcase></testsuite>
          XML
          exit 1
`

const surefireReport = `<?xml version="1.0" encoding="ISO-8859-1"?>
<testsuites>
  <testsuite name="ParserTest">
    <testcase classname="com.example.ParserTest" name="parse">
      <failure type="java.lang.NullPointerException" message="node is null"/>
    </testcase>
    <testcase classname="com.example.ParserTest" name="tokens"/>
  </testsuite>
  <testsuite name="ClientTest">
    <testcase classname="com.example.ClientTest" name="connect">
      <failure type="org.opentest4j.AssertionFailedError" message="expected 200"/>
    </testcase>
  </testsuite>
</testsuites>
`

var TestCases = map[string]TestCase{
	"detect-and-rewrite": {
		Name:  "detect-and-rewrite",
		Files: map[string]string{".github/workflows/tests.yml": testsWorkflow},
		Args:  []string{"detect", "--rewrite", RepoPlaceholder + "/.github/workflows/tests.yml"},
		ExpectedOutput: []string{
			"tests.yml: found",
			"rewritten to " + RepoPlaceholder + "/.github/workflows/tests-crawler.yml",
		},
	},
	"report-filtered": {
		Name:  "report-filtered",
		Files: map[string]string{"target/surefire-reports/TEST-suite.xml": surefireReport},
		Args: []string{"report", RepoPlaceholder + "/target/surefire-reports",
			"--filter", `failure_type.startsWith("java.lang")`},
		ExpectedOutput: []string{"com.example.ParserTest\tjava.lang.NullPointerException\tnode is null"},
	},
	"report-strict-broken": {
		Name:        "report-strict-broken",
		Files:       map[string]string{"reports/TEST-broken.xml": "<testsuite><testcase>"},
		Args:        []string{"report", "--strict", RepoPlaceholder + "/reports"},
		ExpectError: true,
	},
	"run-failing-workflow": {
		Name:        "run-failing-workflow",
		Files:       map[string]string{".github/workflows/tests.yml": testsWorkflow},
		Args:        []string{"run", RepoPlaceholder, ".github/workflows/tests.yml"},
		RequiresAct: true,
		ExpectedOutput: []string{
			".github/workflows/tests.yml: failed",
			"com.example.CalcTest java.lang.ArithmeticException: / by zero",
		},
	},
}
