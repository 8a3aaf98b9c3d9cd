package scenario

import (
	"bytes"
	"fmt"
	"os/exec"
)

// Runner executes the assertions parsed out of a scenario file against a
// real binary, in a fixed working directory and environment.
type Runner struct {
	// Dir is the working directory every command runs in.
	Dir string
	// Env is the environment passed to each command, in "KEY=VALUE"
	// form. A nil Env means the command inherits the current process's
	// environment, as exec.Cmd does by default.
	Env []string
}

// Mismatch reports that a command's actual stdout or exit status did not
// match the assertion that expected it.
type Mismatch struct {
	Assertion Assertion
	Got       string
	Err       error
}

func (m *Mismatch) Error() string {
	if m.Err != nil {
		return fmt.Sprintf("scenario: `%s %v`: expected exit failure=%v, got error: %v", m.Assertion.Command, m.Assertion.Args, m.Assertion.ExpectFailure, m.Err)
	}
	return fmt.Sprintf("scenario: `%s %v`: output mismatch\n--- expected ---\n%s--- got ---\n%s", m.Assertion.Command, m.Assertion.Args, m.Assertion.Expected, m.Got)
}

// Run executes every assertion across every test in order and returns
// the first *Mismatch encountered, or nil if all of them passed.
func (r *Runner) Run(tests []Test) error {
	for _, test := range tests {
		for _, assertion := range test.Assertions {
			if err := r.runOne(assertion); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runOne(assertion Assertion) error {
	cmd := exec.Command(assertion.Command, assertion.Args...)
	cmd.Dir = r.Dir
	cmd.Env = r.Env

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	runErr := cmd.Run()
	failed := runErr != nil

	if assertion.ExpectFailure != failed {
		return &Mismatch{Assertion: assertion, Got: stdout.String(), Err: runErr}
	}
	if got := stdout.String(); got != assertion.Expected {
		return &Mismatch{Assertion: assertion, Got: got}
	}
	return nil
}
