package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"library-catalog/library"

	"github.com/spf13/cobra"
)

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID: %s", kind, s)
	}
	return id, nil
}

// ------------------ Catalog ------------------

func (a *app) booksCmd() *cobra.Command {
	var genre string
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the catalog, optionally one genre",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.mgr.Catalog()
			if genre != "" {
				a.printBooks(c.ByGenre(genre), fmt.Sprintf("No books in genre '%s'.", genre))
				return nil
			}
			a.printBooks(c.Books(), "No books in catalog.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&genre, "genre", "g", "", "exact genre to filter by")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find books by title, author or genre",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			a.searchBooks(query)
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book, its availability and similar titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			return a.showBook(id)
		},
	}
}

func (a *app) genresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genres",
		Short: "List the catalog's genres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, g := range a.mgr.Catalog().Genres() {
				fmt.Fprintln(a.out, g)
			}
			return nil
		},
	}
}

func (a *app) trendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "List trending books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printBooks(a.mgr.Catalog().Trending(), "No books in catalog.")
			return nil
		},
	}
}

// ------------------ Accounts ------------------

func (a *app) registerCmd() *cobra.Command {
	var r library.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (log in afterwards)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if r.Password, err = a.readPassword("Password: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if r.ConfirmPassword, err = a.readPassword("Confirm password: "); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			return a.register(r)
		},
	}
	cmd.Flags().StringVar(&r.Name, "name", "", "full name")
	cmd.Flags().StringVar(&r.Email, "email", "", "email address")
	cmd.Flags().StringVar(&r.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&r.Address, "address", "", "postal address (optional)")
	cmd.Flags().BoolVar(&r.AcceptTerms, "accept-terms", false, "accept the terms and privacy policy")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			return a.login(email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.logout()
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the current user and their activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showProfile()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "image <reference>",
		Short: "Set the profile image reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.mgr.SetProfileImage(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Profile image for %s set to %s\n", user.Name, user.ProfileImage)
			return nil
		},
	})
	return cmd
}

// ------------------ Favorites ------------------

func (a *app) favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List favorite books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printBooks(a.mgr.FavoriteBooks(), "No favorites yet.")
			return nil
		},
	}
	bookAction := func(use, short string, run func(id int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <book-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("book", args[0])
				if err != nil {
					return err
				}
				return run(id)
			},
		}
	}
	cmd.AddCommand(
		bookAction("add", "Add a book to favorites", func(id int64) error {
			if err := a.mgr.AddFavorite(id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Book added to favorites")
			return nil
		}),
		bookAction("remove", "Remove a book from favorites", func(id int64) error {
			if err := a.mgr.RemoveFavorite(id); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Book removed from favorites")
			return nil
		}),
		bookAction("toggle", "Flip a book's favorite flag", a.toggleFavorite),
	)
	return cmd
}

// ------------------ Circulation ------------------

func (a *app) borrowCmd() *cobra.Command {
	var from, due string
	cmd := &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Borrow a book",
		Long:  "Borrow a book. The loan starts today and lasts the configured number of days unless --from/--due say otherwise.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			req := library.BorrowRequest{BookID: id}
			if from != "" {
				if req.BorrowDate, err = library.ParseDate(from); err != nil {
					return err
				}
			}
			if due != "" {
				if req.DueDate, err = library.ParseDate(due); err != nil {
					return err
				}
			}
			return a.borrow(req)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "borrow date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&due, "due", "", "return date (YYYY-MM-DD)")
	return cmd
}

func (a *app) borrowingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrowings",
		Short: "List your borrowings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listBorrowings()
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <borrowing-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("borrowing", args[0])
			if err != nil {
				return err
			}
			return a.returnBook(id)
		},
	}
}

// ------------------ Settings ------------------

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show theme and language preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "Theme:    %s\nLanguage: %s\n", a.mgr.Theme(), a.mgr.Language())
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:       "theme <light|dark|auto>",
			Short:     "Set the theme",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"light", "dark", "auto"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.setTheme(args[0])
			},
		},
		&cobra.Command{
			Use:       "language <id|en>",
			Short:     "Set the language",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"id", "en"},
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.setLanguage(args[0])
			},
		},
	)
	return cmd
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to erase local data without --yes")
			}
			if err := a.mgr.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Local data erased.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm erasing all local data")
	return cmd
}
