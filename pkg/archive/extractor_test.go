package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractZip(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"a.xml": "<doc>a</doc>",
		"b.xml": "<doc>b</doc>",
	})

	got := map[string]string{}
	err := ExtractZip(data, func(name string, content []byte) error {
		got[name] = string(content)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, map[string]string{
		"a.xml": "<doc>a</doc>",
		"b.xml": "<doc>b</doc>",
	}, got)
}

func TestExtractZipCorruptArchive(t *testing.T) {
	t.Parallel()

	err := ExtractZip([]byte("definitely not a zip"), func(string, []byte) error {
		t.Fatal("callback must not run on a corrupt archive")
		return nil
	})
	require.ErrorIs(t, err, ErrCorruptArchive)
}

func TestExtractZipCallbackErrorStopsWalk(t *testing.T) {
	t.Parallel()

	data := buildZip(t, map[string]string{
		"a.xml": "a",
		"b.xml": "b",
	})

	boom := errors.New("boom")
	calls := 0
	err := ExtractZip(data, func(string, []byte) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestExtractZipSkipsDirectories(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("nested/")
	require.NoError(t, err)
	f, err := w.Create("nested/doc.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var names []string
	err = ExtractZip(buf.Bytes(), func(name string, _ []byte) error {
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"nested/doc.xml"}, names)
}
