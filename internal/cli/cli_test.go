package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := Run(t.Context(), nil, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Usage: tempmongo")
}

func TestRunHelp(t *testing.T) {
	for _, arg := range []string{"help", "-h", "--help"} {
		var stdout, stderr bytes.Buffer
		err := Run(t.Context(), []string{arg}, &stdout, &stderr)
		require.NoError(t, err, arg)
		assert.Contains(t, stdout.String(), "Usage: tempmongo", arg)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := Run(t.Context(), []string{"bogus"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestSingleTarget(t *testing.T) {
	id, err := singleTarget("down", []string{"abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = singleTarget("down", nil)
	require.Error(t, err)

	_, err = singleTarget("down", []string{"a", "b"})
	require.Error(t, err)

	_, err = singleTarget("down", []string{""})
	require.Error(t, err)
}
