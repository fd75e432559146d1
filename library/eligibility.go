package library

import "time"

// Reason explains why a borrow is or is not allowed.
type Reason int

const (
	ReasonAllowed Reason = iota
	ReasonNotLoggedIn
	ReasonAlreadyBorrowed
	ReasonNoCopies
)

func (r Reason) String() string {
	switch r {
	case ReasonAllowed:
		return "available"
	case ReasonNotLoggedIn:
		return "you must log in first"
	case ReasonAlreadyBorrowed:
		return "you already borrowed this book; return it before borrowing again"
	case ReasonNoCopies:
		return "no copies are currently available"
	}
	return "unknown"
}

// Eligibility is the outcome of CheckEligibility.
type Eligibility struct {
	Allowed bool
	Reason  Reason
	// Active counts the book's borrowings that currently hold a copy,
	// including the user's own.
	Active int
	// Free is stock minus Active, never negative.
	Free int
}

// CheckEligibility decides whether user may borrow book given every
// borrowing on record. A borrowing is active when its status is borrowed or
// approved and its due date is today or later; today is taken from now at
// midnight granularity.
func CheckEligibility(book Book, user *User, borrowings []Borrowing, now time.Time) Eligibility {
	if user == nil {
		return Eligibility{Reason: ReasonNotLoggedIn}
	}

	today := DateOf(now)
	active, held := 0, false
	for i := range borrowings {
		b := &borrowings[i]
		if b.BookID != book.ID || !b.ActiveOn(today) {
			continue
		}
		if b.UserID == user.ID {
			held = true
		}
		active++
	}

	e := Eligibility{Active: active, Free: max(book.Stock-active, 0)}
	switch {
	case held:
		e.Reason = ReasonAlreadyBorrowed
	case active >= book.Stock:
		e.Reason = ReasonNoCopies
	default:
		e.Allowed = true
	}
	return e
}
