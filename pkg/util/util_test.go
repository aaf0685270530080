package util

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illustraitor/cli/pkg/illustraitor"
)

func TestCleanedUpAPIError(t *testing.T) {
	inner := &illustraitor.Error{Kind: illustraitor.KindServer, StatusCode: 402, Message: "Insufficient credits"}
	err := CleanedUpAPIError{Err: inner, Hint: "Check your balance with: illustraitor credits check"}

	assert.Equal(t, "Insufficient credits\nCheck your balance with: illustraitor credits check", err.Error())
	assert.ErrorIs(t, err, illustraitor.ErrServer)

	plain := CleanedUpAPIError{Err: errors.New("boom")}
	assert.Equal(t, "boom", plain.Error())
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "image.png")

	err := WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := w.Write([]byte("png"))
		return err
	})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	err = WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("connection reset")
	})
	require.Error(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data), "failed write leaves the previous file alone")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is removed")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/Pictures/fox.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Pictures", "fox.png"), got)

	got, err = ExpandHome("relative/fox.png")
	require.NoError(t, err)
	assert.Equal(t, "relative/fox.png", got)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", OrDash(""))
	assert.Equal(t, "b", FirstOrDash("", "b", "c"))
	assert.Equal(t, "-", JoinOrDash())
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "1 credit", Plural(1, "credit"))
	assert.Equal(t, "0 credits", Plural(0, "credit"))
	assert.Equal(t, "2.4s", FormatSeconds(2.43))
	assert.Equal(t, "-", FormatSeconds(0))
}
