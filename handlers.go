package main

import (
	"errors"
	"fmt"
	"strings"

	"library-catalog/library"
)

func (a *app) printBooks(books []library.Book, empty string) {
	if len(books) == 0 {
		fmt.Fprintln(a.out, empty)
		return
	}
	fmt.Fprintf(a.out, "%-5s %-30s %-25s %-18s %s\n", "ID", "Title", "Author", "Genre", "Stock")
	fmt.Fprintln(a.out, strings.Repeat("-", 90))
	for _, b := range books {
		fmt.Fprintln(a.out, library.PrettyBook(b))
	}
}

func (a *app) searchBooks(query string) {
	books := a.mgr.Catalog().Search(query)
	if len(books) == 0 {
		fmt.Fprintf(a.out, "No books found matching '%s'.\n", query)
		return
	}
	fmt.Fprintf(a.out, "Found %d book(s) matching '%s':\n", len(books), query)
	a.printBooks(books, "")
}

func (a *app) showBook(id int64) error {
	d, err := a.mgr.BookDetail(id)
	if err != nil {
		return err
	}
	b := d.Book
	fmt.Fprintf(a.out, "%s\n%s\n", b.Title, strings.Repeat("=", len([]rune(b.Title))))
	fmt.Fprintf(a.out, "Author:    %s\n", b.Author)
	fmt.Fprintf(a.out, "Genre:     %s\n", b.Genre)
	fmt.Fprintf(a.out, "Publisher: %s (%d)\n", b.Publisher, b.PublishedYear)
	fmt.Fprintf(a.out, "ISBN:      %s\n", b.ISBN)
	fmt.Fprintf(a.out, "Stock:     %d\n", b.Stock)
	if b.Description != "" {
		fmt.Fprintf(a.out, "\n%s\n", b.Description)
	}

	fmt.Fprintln(a.out)
	if d.Favorite {
		fmt.Fprintln(a.out, "★ In your favorites")
	}
	e := d.Eligibility
	switch {
	case e.Allowed:
		fmt.Fprintf(a.out, "Available to borrow (%d of %d copies free)\n", e.Free, b.Stock)
	case e.Reason == library.ReasonNotLoggedIn:
		fmt.Fprintln(a.out, "Log in to borrow this book")
	default:
		fmt.Fprintf(a.out, "Cannot borrow: %s\n", e.Reason)
	}

	if len(d.Recommendations) > 0 {
		fmt.Fprintln(a.out, "\nYou might also like:")
		for _, r := range d.Recommendations {
			fmt.Fprintf(a.out, "  %-5d %s by %s\n", r.ID, r.Title, r.Author)
		}
	}
	return nil
}

func (a *app) register(r library.Registration) error {
	user, err := a.mgr.Register(r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registration successful for %s. Please log in.\n", user.Email)
	return nil
}

func (a *app) login(email, password string) error {
	user, err := a.mgr.Login(email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", user.Name)
	return nil
}

func (a *app) logout() error {
	if a.mgr.CurrentUser() == nil {
		fmt.Fprintln(a.out, "Nobody is logged in.")
		return nil
	}
	if err := a.mgr.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) showProfile() error {
	p, err := a.mgr.Profile()
	if err != nil {
		return err
	}
	u := p.User
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	fmt.Fprintf(a.out, "Role:    %s\n", u.Role)
	if u.Phone != "" {
		fmt.Fprintf(a.out, "Phone:   %s\n", u.Phone)
	}
	if u.Address != "" {
		fmt.Fprintf(a.out, "Address: %s\n", u.Address)
	}
	if u.ProfileImage != "" {
		fmt.Fprintf(a.out, "Image:   %s\n", u.ProfileImage)
	}
	fmt.Fprintf(a.out, "\nBorrowings: %d total, %d active\nFavorites:  %d\n",
		p.TotalBorrowings, p.ActiveBorrowings, p.TotalFavorites)
	return nil
}

func (a *app) toggleFavorite(id int64) error {
	added, err := a.mgr.ToggleFavorite(id)
	if err != nil {
		return err
	}
	if added {
		fmt.Fprintln(a.out, "Book added to favorites")
	} else {
		fmt.Fprintln(a.out, "Book removed from favorites")
	}
	return nil
}

func (a *app) borrow(req library.BorrowRequest) error {
	b, err := a.mgr.Borrow(req)
	var ineligible *library.IneligibleError
	switch {
	case errors.As(err, &ineligible) && ineligible.Reason == library.ReasonAlreadyBorrowed:
		return errors.New("you have already borrowed this book; return it before borrowing it again")
	case errors.As(err, &ineligible) && ineligible.Reason == library.ReasonNoCopies:
		return errors.New("sorry, this book is currently unavailable")
	case err != nil:
		return err
	}
	book, _ := a.mgr.Catalog().Book(b.BookID)
	fmt.Fprintf(a.out, "Borrowed '%s' (borrowing %d), due %s\n", book.Title, b.ID, b.DueDate)
	return nil
}

func (a *app) listBorrowings() error {
	if a.mgr.CurrentUser() == nil {
		return library.ErrNotLoggedIn
	}
	entries := a.mgr.MyBorrowings()
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No borrowings yet.")
		return nil
	}
	today := a.mgr.Today()
	fmt.Fprintf(a.out, "%-15s %-30s %-11s %-11s %-9s\n", "ID", "Title", "Borrowed", "Due", "Status")
	fmt.Fprintln(a.out, strings.Repeat("-", 80))
	for _, e := range entries {
		title := "(unknown book)"
		if e.Book != nil {
			title = e.Book.Title
		}
		status := string(e.Status)
		if e.Status.Holding() && e.DueDate.Before(today) {
			status += " (overdue)"
		}
		fmt.Fprintf(a.out, "%-15d %-30s %-11s %-11s %s\n", e.ID, library.Truncate(title, 30), e.BorrowDate, e.DueDate, status)
	}
	return nil
}

func (a *app) returnBook(id int64) error {
	b, err := a.mgr.Return(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Borrowing %d returned on %s\n", b.ID, b.ReturnDate)
	return nil
}

func (a *app) setTheme(s string) error {
	mode, err := library.ParseThemeMode(s)
	if err != nil {
		return err
	}
	if err := a.mgr.SetTheme(mode); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Theme set to %s\n", mode)
	return nil
}

func (a *app) setLanguage(s string) error {
	lang, err := library.ParseLanguage(s)
	if err != nil {
		return err
	}
	if err := a.mgr.SetLanguage(lang); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Language set to %s\n", lang)
	return nil
}
