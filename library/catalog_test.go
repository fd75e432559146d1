package library

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func ids(books []Book) []int64 {
	out := make([]int64, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c := defaultCatalog(t)
	books := c.Books()
	require.Len(t, books, 12)
	for _, b := range books {
		assert.LessOrEqual(t, b.Available, b.Stock, "book %d", b.ID)
		assert.NotEmpty(t, b.Title)
	}

	// Books hands out copies.
	books[0].Title = "changed"
	b, err := c.Book(books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Laskar Pelangi", b.Title)
}

func TestBookNotFound(t *testing.T) {
	c := defaultCatalog(t)
	_, err := c.Book(999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestByGenre(t *testing.T) {
	c := defaultCatalog(t)
	assert.Equal(t, []int64{3, 4, 12}, ids(c.ByGenre("Technology")))
	assert.Empty(t, c.ByGenre("technology"))
	assert.NotNil(t, c.ByGenre("Poetry"))
}

func TestSearch(t *testing.T) {
	c := defaultCatalog(t)
	tests := []struct {
		query string
		want  []int64
	}{
		{"pramoedya", []int64{2, 11}},
		{"CLEAN", []int64{3}},
		{"history", []int64{5, 9}},
		{"science", []int64{9, 10}},
		{"no such book", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(c.Search(tt.query))); diff != "" {
				t.Fatalf("search %q (-want +got):\n%s", tt.query, diff)
			}
		})
	}
	assert.Len(t, c.Search(""), 12)
}

func TestGenresAndTrending(t *testing.T) {
	c := defaultCatalog(t)
	want := []string{"Fiction", "Historical Fiction", "Technology", "History", "Self-Help", "Science"}
	if diff := cmp.Diff(want, c.Genres()); diff != "" {
		t.Fatalf("genres (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(c.Trending()))
}

func TestRecommendations(t *testing.T) {
	c := defaultCatalog(t)
	book, err := c.Book(1)
	require.NoError(t, err)

	got := c.Recommendations(book, DefaultRecommendations, rand.New(rand.NewPCG(1, 2)))
	assert.ElementsMatch(t, []int64{6, 8}, ids(got))
	for _, r := range got {
		assert.Equal(t, book.Genre, r.Genre)
		assert.NotEqual(t, book.ID, r.ID)
	}

	// Same seed, same order.
	again := c.Recommendations(book, DefaultRecommendations, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, ids(got), ids(again))

	assert.Len(t, c.Recommendations(book, 1, nil), 1)

	lonely, err := c.Book(7)
	require.NoError(t, err)
	assert.Empty(t, c.Recommendations(lonely, DefaultRecommendations, nil))
}

func TestDemoAccounts(t *testing.T) {
	c := defaultCatalog(t)
	a, ok := c.DemoAccount("siswa@library.local")
	require.True(t, ok)
	assert.Equal(t, RoleStudent, a.Role)
	assert.Equal(t, "siswa123", a.Password)

	_, ok = c.DemoAccount("nobody@library.local")
	assert.False(t, ok)
}

func TestOpenCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	data := `[{"id": 7, "title": "Only", "author": "One", "genre": "Solo", "stock": 1, "available": 1}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := OpenCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids(c.Books()))
	_, ok := c.DemoAccount("umum@library.local")
	assert.True(t, ok)

	_, err = OpenCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadCatalogRejectsInvalidData(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader(`{"id": 1}`))
	assert.Error(t, err)

	_, err = LoadCatalog(strings.NewReader(`[{"id": 1, "title": "T", "author": "A", "stock": 1, "available": 2}]`))
	assert.ErrorContains(t, err, "exceeds stock")
}

func TestValidateBooks(t *testing.T) {
	books := []Book{
		{ID: 1, Title: "A", Author: "X", Stock: 2, Available: 2},
		{ID: 1, Title: "B", Author: "Y", Stock: 1, Available: 1},
		{ID: 0, Title: "C", Author: "Z"},
		{ID: 4, Title: " ", Author: "Z"},
		{ID: 5, Title: "E", Author: "Z", Stock: -1, Available: -1},
	}
	err := ValidateBooks(books)
	require.Error(t, err)
	for _, want := range []string{"duplicate id", "id must be positive", "title and author are required", "negative stock"} {
		assert.ErrorContains(t, err, want)
	}

	assert.NoError(t, ValidateBooks(books[:1]))
	assert.NoError(t, ValidateBooks(nil))
}
