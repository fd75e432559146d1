// Command import_books turns a YAML catalog description into the JSON dataset
// the library loads, validating it on the way.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"library-catalog/library"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML layout: a top-level books list.
type catalogFile struct {
	Books []bookEntry `yaml:"books"`
}

// bookEntry mirrors library.Book; a nil Available means the key was omitted.
type bookEntry struct {
	ID            int64  `yaml:"id"`
	Title         string `yaml:"title"`
	Author        string `yaml:"author"`
	ISBN          string `yaml:"isbn"`
	Genre         string `yaml:"genre"`
	Description   string `yaml:"description"`
	ImageURL      string `yaml:"image_url"`
	Stock         int    `yaml:"stock"`
	Available     *int   `yaml:"available"`
	PublishedYear int    `yaml:"published_year"`
	Publisher     string `yaml:"publisher"`
}

func (e bookEntry) book() library.Book {
	b := library.Book{
		ID:            e.ID,
		Title:         strings.TrimSpace(e.Title),
		Author:        strings.TrimSpace(e.Author),
		ISBN:          e.ISBN,
		Genre:         strings.TrimSpace(e.Genre),
		Description:   e.Description,
		ImageURL:      e.ImageURL,
		Stock:         e.Stock,
		Available:     e.Stock,
		PublishedYear: e.PublishedYear,
		Publisher:     e.Publisher,
	}
	// Omitted available means every copy is on the shelf.
	if e.Available != nil {
		b.Available = *e.Available
	}
	return b
}

func readCatalog(r io.Reader) ([]library.Book, error) {
	var cf catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	books := make([]library.Book, 0, len(cf.Books))
	for _, e := range cf.Books {
		books = append(books, e.book())
	}
	if err := library.ValidateBooks(books); err != nil {
		return nil, err
	}
	return books, nil
}

func writeDataset(w io.Writer, books []library.Book) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(books); err != nil {
		return err
	}
	// The loader must accept what we write.
	if _, err := library.LoadCatalog(bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("round-trip check: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func newRootCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:          "import_books <catalog.yaml>",
		Short:        "Build the catalog dataset from a YAML description",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			defer in.Close()

			books, err := readCatalog(in)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(filepath.Clean(output))
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			if err := writeDataset(out, books); err != nil {
				return err
			}

			genres := map[string]int{}
			for _, b := range books {
				genres[b.Genre]++
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d books in %d genres\n", len(books), len(genres))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the dataset here instead of stdout")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
