package scenario

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brambleworks/cob/pkg/cob"
)

func TestParseContextAndAssertions(t *testing.T) {
	input := strings.TrimSpace(`
Let's try to track two objects:
` + "```" + `
$ cobctl track dave
Tracking relationship established for dave.
Nothing to do.

$ cobctl track sean
Tracking relationship established for sean.
Nothing to do.
` + "```" + `
Super, now let's move on to the next step.
` + "```" + `
$ cobctl sync
` + "```" + `
`)

	tests, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tests, 2)

	first := tests[0]
	assert.Equal(t, []string{"Let's try to track two objects:"}, first.Context)
	require.Len(t, first.Assertions, 2)
	assert.Equal(t, "cobctl", first.Assertions[0].Command)
	assert.Equal(t, []string{"track", "dave"}, first.Assertions[0].Args)
	assert.Equal(t, "Tracking relationship established for dave.\nNothing to do.\n\n", first.Assertions[0].Expected)
	assert.False(t, first.Assertions[0].ExpectFailure)
	assert.Equal(t, []string{"track", "sean"}, first.Assertions[1].Args)
	assert.Equal(t, "Tracking relationship established for sean.\nNothing to do.\n", first.Assertions[1].Expected)

	second := tests[1]
	assert.Equal(t, []string{"Super, now let's move on to the next step."}, second.Context)
	require.Len(t, second.Assertions, 1)
	assert.Equal(t, "cobctl", second.Assertions[0].Command)
	assert.Equal(t, []string{"sync"}, second.Assertions[0].Args)
	assert.Equal(t, "", second.Assertions[0].Expected)
}

func TestParseExpectFailureGlyph(t *testing.T) {
	input := strings.TrimSpace("```\n$ cobctl show nonexistent\n✗ Error: object not found\n```")

	tests, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tests, 1)
	require.Len(t, tests[0].Assertions, 1)

	assertion := tests[0].Assertions[0]
	assert.True(t, assertion.ExpectFailure)
	assert.Equal(t, "✗ Error: object not found\n", assertion.Expected)
}

func TestParseQuotedArguments(t *testing.T) {
	input := "```\n$ cobctl comment issue1 'hello world'\n```"

	tests, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, []string{"comment", "issue1", "hello world"}, tests[0].Assertions[0].Args)
}

func TestParseOutputOutsideCommandIsError(t *testing.T) {
	input := "```\nsome stray output\n```"

	_, err := Parse(strings.NewReader(input))
	require.Error(t, err)
	var parseErr *cob.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestParseUnclosedFenceKeepsEarlierTests(t *testing.T) {
	input := "```\n$ cobctl sync\n```\nmore context\n```\n$ cobctl status\n"

	tests, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "sync", tests[0].Assertions[0].Args[0])
}
