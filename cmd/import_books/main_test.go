package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"library-catalog/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
books:
  - id: 1
    title: "  Laut Bercerita "
    author: Leila S. Chudori
    genre: Fiction
    stock: 3
  - id: 2
    title: Filosofi Teras
    author: Henry Manampiring
    genre: Self-Help
    stock: 2
    available: 1
`

func TestReadCatalog(t *testing.T) {
	books, err := readCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Laut Bercerita", books[0].Title)
	assert.Equal(t, 3, books[0].Available, "omitted available defaults to stock")
	assert.Equal(t, 1, books[1].Available)
}

func TestReadCatalogExplicitZeroAvailable(t *testing.T) {
	books, err := readCatalog(strings.NewReader("books:\n  - {id: 1, title: T, author: A, stock: 3, available: 0}\n"))
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 3, books[0].Stock)
	assert.Equal(t, 0, books[0].Available, "every copy out stays out")
}

func TestReadCatalogRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "books:\n  - id: 1\n    title: T\n    author: A\n    pages: 10\n", "pages"},
		{"available above stock", "books:\n  - id: 1\n    title: T\n    author: A\n    stock: 1\n    available: 2\n", "exceeds stock"},
		{"duplicate id", "books:\n  - {id: 1, title: T, author: A}\n  - {id: 1, title: U, author: B}\n", "duplicate id"},
		{"not yaml", "books: [", "parse catalog"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readCatalog(strings.NewReader(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestWriteDatasetLoads(t *testing.T) {
	books, err := readCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeDataset(&buf, books))

	c, err := library.LoadCatalog(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fiction", "Self-Help"}, c.Genres())
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "catalog.yaml")
	out := filepath.Join(dir, "books.json")
	require.NoError(t, os.WriteFile(in, []byte(sampleCatalog), 0o644))

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{in, "-o", out})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Imported 2 books in 2 genres\n", stderr.String())

	c, err := library.OpenCatalog(out)
	require.NoError(t, err)
	assert.Len(t, c.Books(), 2)
}
