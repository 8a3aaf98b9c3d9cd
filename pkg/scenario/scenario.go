/*
Package scenario parses the literate test format used to document COB
command-line behavior: Markdown files whose fenced code blocks contain
`$ cmd args...` invocations followed by their expected stdout, with any
text outside a fenced block kept as human-readable context for the
assertions that follow it.
*/
package scenario

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/brambleworks/cob/pkg/cob"
)

// errorPrefix marks an expected-output line as denoting a command that is
// expected to fail rather than succeed.
const errorPrefix = "✗"

// Assertion is a single command invocation and its expected stdout,
// parsed out of one fenced code block.
type Assertion struct {
	// Command is the program name, e.g. "cobctl".
	Command string
	// Args are the command's arguments, already shell-tokenized.
	Args []string
	// Expected is the literal stdout the command must produce.
	Expected string
	// ExpectFailure is true when a line of Expected began with the
	// errorPrefix glyph, meaning the command is expected to exit
	// non-zero.
	ExpectFailure bool
}

// Test groups the assertions from one fenced code block with the
// human-readable context that preceded it.
type Test struct {
	// Context is the prose lines that appeared before the fenced block,
	// one per source line. It documents the test but is not executed.
	Context []string
	// Assertions are the commands parsed out of the fenced block, in
	// the order they appear.
	Assertions []Assertion
}

// Parse reads a literate scenario file from r and returns its tests in
// the order their fenced blocks appear. It returns a *cob.ParseError if
// a `$`-prefixed line cannot be tokenized, or if an expected-output line
// appears before any command has been parsed in the current block.
func Parse(r io.Reader) ([]Test, error) {
	scanner := bufio.NewScanner(r)

	var (
		tests  []Test
		test   Test
		fenced bool
	)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "```") {
			if fenced {
				tests = append(tests, test)
				test = Test{}
			}
			fenced = !fenced
			continue
		}

		if !fenced {
			test.Context = append(test.Context, line)
			continue
		}

		if cmdLine, ok := strings.CutPrefix(line, "$"); ok {
			cmdLine = strings.TrimSpace(cmdLine)
			parts, err := shellwords.Parse(cmdLine)
			if err != nil {
				return nil, &cob.ParseError{Reason: "scenario: invalid command line: " + err.Error()}
			}
			if len(parts) == 0 {
				return nil, &cob.ParseError{Reason: "scenario: empty command line"}
			}
			test.Assertions = append(test.Assertions, Assertion{
				Command: parts[0],
				Args:    parts[1:],
			})
			continue
		}

		if len(test.Assertions) == 0 {
			return nil, &cob.ParseError{Reason: "scenario: expected output outside of any command"}
		}
		last := &test.Assertions[len(test.Assertions)-1]
		if strings.HasPrefix(line, errorPrefix) {
			last.ExpectFailure = true
		}
		last.Expected += line + "\n"
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return tests, nil
}
