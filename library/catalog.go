package library

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

//go:embed data/books.json
var bundledBooks []byte

//go:embed data/users.json
var bundledUsers []byte

// ErrBookNotFound is returned for ids that are not in the catalog.
var ErrBookNotFound = errors.New("book not found")

const (
	trendingCount          = 5
	DefaultRecommendations = 4
)

// Catalog is the fixed, read-only list of books. All lookups are
// deterministic and return copies, never references into the dataset.
type Catalog struct {
	books []Book
	byID  map[int64]int
	demo  []DemoAccount
}

// DemoAccount is a bundled login that exists without registration.
type DemoAccount struct {
	User
	Password string `json:"password"`
}

// DefaultCatalog loads the dataset compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	c, err := LoadCatalog(bytes.NewReader(bundledBooks))
	if err != nil {
		return nil, err
	}
	if err := c.loadDemoAccounts(bytes.NewReader(bundledUsers)); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenCatalog loads a dataset file from disk. Demo accounts still come from
// the bundled dataset.
func OpenCatalog(path string) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.loadDemoAccounts(bytes.NewReader(bundledUsers)); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog decodes a JSON array of books and validates it.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var books []Book
	if err := json.NewDecoder(r).Decode(&books); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := ValidateBooks(books); err != nil {
		return nil, err
	}

	c := &Catalog{books: books, byID: make(map[int64]int, len(books))}
	for i, b := range books {
		c.byID[b.ID] = i
	}
	return c, nil
}

func (c *Catalog) loadDemoAccounts(r io.Reader) error {
	var accounts []DemoAccount
	if err := json.NewDecoder(r).Decode(&accounts); err != nil {
		return fmt.Errorf("decode demo accounts: %w", err)
	}
	c.demo = accounts
	return nil
}

// ValidateBooks checks the catalog invariants: positive unique ids, a title
// and author on every record, and 0 <= available <= stock.
func ValidateBooks(books []Book) error {
	seen := make(map[int64]bool, len(books))
	var errs []error
	for i, b := range books {
		switch {
		case b.ID <= 0:
			errs = append(errs, fmt.Errorf("book #%d: id must be positive", i+1))
		case seen[b.ID]:
			errs = append(errs, fmt.Errorf("book %d: duplicate id", b.ID))
		}
		seen[b.ID] = true

		if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Author) == "" {
			errs = append(errs, fmt.Errorf("book %d: title and author are required", b.ID))
		}
		if b.Stock < 0 || b.Available < 0 {
			errs = append(errs, fmt.Errorf("book %d: negative stock", b.ID))
		}
		if b.Available > b.Stock {
			errs = append(errs, fmt.Errorf("book %d: available %d exceeds stock %d", b.ID, b.Available, b.Stock))
		}
	}
	return errors.Join(errs...)
}

// Books returns every book in dataset order.
func (c *Catalog) Books() []Book { return slices.Clone(c.books) }

// Book returns the book with the given id.
func (c *Catalog) Book(id int64) (Book, error) {
	i, ok := c.byID[id]
	if !ok {
		return Book{}, fmt.Errorf("%w: %d", ErrBookNotFound, id)
	}
	return c.books[i], nil
}

// ByGenre returns books whose genre matches exactly.
func (c *Catalog) ByGenre(genre string) []Book {
	return c.filter(func(b Book) bool { return b.Genre == genre })
}

// Search matches a case-insensitive substring against title, author and
// genre. An empty query matches every book.
func (c *Catalog) Search(query string) []Book {
	q := strings.ToLower(query)
	return c.filter(func(b Book) bool {
		return strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.Genre), q)
	})
}

// Genres lists distinct genres in first-seen order.
func (c *Catalog) Genres() []string {
	var genres []string
	for _, b := range c.books {
		if !slices.Contains(genres, b.Genre) {
			genres = append(genres, b.Genre)
		}
	}
	return genres
}

// Trending returns the head of the catalog.
func (c *Catalog) Trending() []Book {
	return slices.Clone(c.books[:min(trendingCount, len(c.books))])
}

// Recommendations returns up to n other books of the same genre in an order
// drawn from rng. A nil rng uses the global source.
func (c *Catalog) Recommendations(book Book, n int, rng *rand.Rand) []Book {
	same := c.filter(func(b Book) bool { return b.Genre == book.Genre && b.ID != book.ID })
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(same), func(i, j int) { same[i], same[j] = same[j], same[i] })
	if n >= 0 && len(same) > n {
		same = same[:n]
	}
	return same
}

// DemoAccount looks up a bundled login by email.
func (c *Catalog) DemoAccount(email string) (DemoAccount, bool) {
	for _, a := range c.demo {
		if a.Email == email {
			return a, true
		}
	}
	return DemoAccount{}, false
}

func (c *Catalog) filter(keep func(Book) bool) []Book {
	out := []Book{}
	for _, b := range c.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}
