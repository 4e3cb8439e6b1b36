package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulatorBuild(t *testing.T) {
	var acc Accumulator
	acc.Add("Project.toml", 3, 5, LevelError, "Unexpected end of file")
	acc.Add("Project.toml", 4, 1, LevelWarning, "Key already exists")

	got := acc.Build()
	want := "Project.toml (3, 5): Unexpected end of file\n" +
		"Project.toml (4, 1): Key already exists\n"
	require.Equal(t, want, got)
	require.Equal(t, 2, acc.Len())
}

func TestAccumulatorNeverFlushes(t *testing.T) {
	var acc Accumulator
	acc.Add("f", 1, 1, LevelError, "first")
	first := acc.Build()
	acc.Add("f", 2, 1, LevelError, "second")
	second := acc.Build()

	require.Contains(t, second, first)
	require.NotEqual(t, first, second)
}

func TestErrorWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrFileRead, "could not read Project.toml", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "FILE_READ_ERROR")
	require.Contains(t, err.Error(), "boom")
}
