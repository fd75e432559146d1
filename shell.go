package main

import (
	"fmt"
	"strings"

	"library-catalog/library"
)

// runShell is the interactive front end started when no subcommand is given.
func (a *app) runShell() error {
	fmt.Fprintln(a.out, "Welcome to the Library!")
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  Catalog: list books, genre, search, show, trending")
	fmt.Fprintln(a.out, "  Account: register, login, logout, profile, profile image")
	fmt.Fprintln(a.out, "  Favorites: favorites, favorite")
	fmt.Fprintln(a.out, "  Circulation: borrow, borrowings, return")
	fmt.Fprintln(a.out, "  Settings: settings, theme, language")
	fmt.Fprintln(a.out, "  System: exit")

	for {
		if u := a.mgr.CurrentUser(); u != nil {
			fmt.Fprintf(a.out, "\n%s> ", u.Name)
		} else {
			fmt.Fprint(a.out, "\n> ")
		}
		if !a.in.Scan() {
			return nil
		}
		cmd := strings.TrimSpace(a.in.Text())

		var err error
		switch cmd {
		case "":
			continue
		case "list books":
			a.printBooks(a.mgr.Catalog().Books(), "No books in catalog.")
		case "genre":
			err = a.shellGenre()
		case "search":
			if q, ok := a.readLine("Query: "); ok {
				a.searchBooks(q)
			}
		case "show":
			err = a.withID("Book ID: ", "book", a.showBook)
		case "trending":
			a.printBooks(a.mgr.Catalog().Trending(), "No books in catalog.")
		case "register":
			err = a.shellRegister()
		case "login":
			err = a.shellLogin()
		case "logout":
			err = a.logout()
		case "profile":
			err = a.showProfile()
		case "profile image":
			if ref, ok := a.readLine("Image reference: "); ok {
				if _, err = a.mgr.SetProfileImage(ref); err == nil {
					fmt.Fprintln(a.out, "Profile image updated.")
				}
			}
		case "favorites":
			a.printBooks(a.mgr.FavoriteBooks(), "No favorites yet.")
		case "favorite":
			err = a.withID("Book ID: ", "book", a.toggleFavorite)
		case "borrow":
			err = a.shellBorrow()
		case "borrowings":
			err = a.listBorrowings()
		case "return":
			err = a.withID("Borrowing ID: ", "borrowing", a.returnBook)
		case "settings":
			fmt.Fprintf(a.out, "Theme:    %s\nLanguage: %s\n", a.mgr.Theme(), a.mgr.Language())
		case "theme":
			if s, ok := a.readLine("Theme (light/dark/auto): "); ok {
				err = a.setTheme(s)
			}
		case "language":
			if s, ok := a.readLine("Language (id/en): "); ok {
				err = a.setLanguage(s)
			}
		case "exit", "quit":
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(a.out, "Unknown command. Type one of the available commands listed above.")
		}
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
	}
}

func (a *app) withID(prompt, kind string, run func(int64) error) error {
	s, ok := a.readLine(prompt)
	if !ok {
		return nil
	}
	id, err := parseID(kind, s)
	if err != nil {
		return err
	}
	return run(id)
}

func (a *app) shellGenre() error {
	genres := a.mgr.Catalog().Genres()
	for i, g := range genres {
		fmt.Fprintf(a.out, "  %d. %s\n", i+1, g)
	}
	s, ok := a.readLine("Genre: ")
	if !ok {
		return nil
	}
	a.printBooks(a.mgr.Catalog().ByGenre(s), fmt.Sprintf("No books in genre '%s'.", s))
	return nil
}

func (a *app) shellRegister() error {
	var r library.Registration
	var ok bool
	if r.Name, ok = a.readLine("Name: "); !ok {
		return nil
	}
	if r.Email, ok = a.readLine("Email: "); !ok {
		return nil
	}
	if r.Phone, ok = a.readLine("Phone: "); !ok {
		return nil
	}
	if r.Address, ok = a.readLine("Address (optional): "); !ok {
		return nil
	}

	var err error
	if r.Password, err = a.readPassword("Password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if r.ConfirmPassword, err = a.readPassword("Confirm password: "); err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	answer, ok := a.readLine("Accept the terms and privacy policy? [y/N]: ")
	if !ok {
		return nil
	}
	r.AcceptTerms = strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
	return a.register(r)
}

func (a *app) shellLogin() error {
	email, ok := a.readLine("Email: ")
	if !ok {
		return nil
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return a.login(email, password)
}

func (a *app) shellBorrow() error {
	s, ok := a.readLine("Book ID: ")
	if !ok {
		return nil
	}
	id, err := parseID("book", s)
	if err != nil {
		return err
	}

	// Refuse early, before asking for dates.
	e, err := a.mgr.Eligibility(id)
	if err != nil {
		return err
	}
	if !e.Allowed {
		return fmt.Errorf("cannot borrow: %s", e.Reason)
	}

	today := a.mgr.Today()
	req := library.BorrowRequest{BookID: id, BorrowDate: today, DueDate: a.mgr.DefaultDueDate(today)}
	if s, ok = a.readLine(fmt.Sprintf("Borrow date [%s]: ", req.BorrowDate)); !ok {
		return nil
	}
	if s != "" {
		if req.BorrowDate, err = library.ParseDate(s); err != nil {
			return err
		}
		req.DueDate = a.mgr.DefaultDueDate(req.BorrowDate)
	}
	if s, ok = a.readLine(fmt.Sprintf("Return date [%s]: ", req.DueDate)); !ok {
		return nil
	}
	if s != "" {
		if req.DueDate, err = library.ParseDate(s); err != nil {
			return err
		}
	}
	return a.borrow(req)
}
