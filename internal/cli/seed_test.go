package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCommand(t *testing.T) {
	out, _, err := execute(t, "seed", "--base", "42", "--total", "100", "--event", "7", "--stage", "2")
	require.NoError(t, err)
	assert.Equal(t, "249\n", out)
}

func TestSeedCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "seed", "--base", "5", "--total", "10", "--event", "3")
	require.NoError(t, err)

	var res SeedResult
	decodeData(t, out, &res)
	assert.Equal(t, SeedResult{Base: 5, Total: 10, Event: 3, Stage: 0, Seed: 8}, res)
}

func TestSeedCommand_Wraps(t *testing.T) {
	out, _, err := execute(t, "seed", "--base", "18446744073709551615", "--total", "2", "--event", "1")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestSeedCommand_EventOutOfRange(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "seed", "--total", "3", "--event", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeInvalidArgs, decodeError(t, out).Code)
}

func TestSeedCommand_TotalRequired(t *testing.T) {
	_, _, err := execute(t, "seed", "--event", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
