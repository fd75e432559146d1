package library

import (
	"encoding/json"
	"fmt"
	"time"
)

// Book is one record of the bundled catalog. Catalog books are never mutated
// at runtime; availability is derived from the borrowings collection.
type Book struct {
	ID            int64  `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Author        string `json:"author" yaml:"author"`
	ISBN          string `json:"isbn" yaml:"isbn"`
	Genre         string `json:"genre" yaml:"genre"`
	Description   string `json:"description" yaml:"description"`
	ImageURL      string `json:"image_url" yaml:"image_url"`
	Stock         int    `json:"stock" yaml:"stock"`
	Available     int    `json:"available" yaml:"available"`
	PublishedYear int    `json:"published_year" yaml:"published_year"`
	Publisher     string `json:"publisher" yaml:"publisher"`
}

// Role distinguishes student members from the general public.
type Role string

const (
	RoleStudent Role = "student"
	RoleGeneral Role = "general"
)

// User is a registered profile. Only the bcrypt hash of the password is kept.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// BorrowStatus is the lifecycle state of a borrowing.
type BorrowStatus string

const (
	StatusPending  BorrowStatus = "pending"
	StatusApproved BorrowStatus = "approved"
	StatusBorrowed BorrowStatus = "borrowed"
	StatusReturned BorrowStatus = "returned"
	StatusRejected BorrowStatus = "rejected"
)

// Holding reports whether the status counts against a book's stock.
func (s BorrowStatus) Holding() bool {
	return s == StatusBorrowed || s == StatusApproved
}

// Borrowing records one loan request of a book by a user.
type Borrowing struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"user_id"`
	BookID     int64        `json:"book_id"`
	BorrowDate Date         `json:"borrow_date"`
	DueDate    Date         `json:"due_date"`
	ReturnDate *Date        `json:"return_date,omitempty"`
	Status     BorrowStatus `json:"status"`
}

// ActiveOn reports whether the borrowing holds a copy on the given day.
func (b *Borrowing) ActiveOn(today Date) bool {
	return b.Status.Holding() && !b.DueDate.Before(today)
}

// BorrowingWithBook joins a borrowing with its catalog record. Book is nil
// when the id is not in the catalog.
type BorrowingWithBook struct {
	Borrowing
	Book *Book `json:"book,omitempty"`
}

// ThemeMode is the persisted appearance preference.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
	ThemeAuto  ThemeMode = "auto"
)

// ParseThemeMode validates s as a theme preference.
func ParseThemeMode(s string) (ThemeMode, error) {
	switch m := ThemeMode(s); m {
	case ThemeLight, ThemeDark, ThemeAuto:
		return m, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light, dark or auto)", s)
}

// Language is a two-letter interface language code.
type Language string

const (
	LanguageIndonesian Language = "id"
	LanguageEnglish    Language = "en"
)

// ParseLanguage validates s as a language preference.
func ParseLanguage(s string) (Language, error) {
	switch l := Language(s); l {
	case LanguageIndonesian, LanguageEnglish:
		return l, nil
	}
	return "", fmt.Errorf("unknown language %q (want id or en)", s)
}

// dateLayout is the calendar-day encoding used in persisted borrowings.
const dateLayout = "2006-01-02"

// Date is a calendar day in local time, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf truncates t to midnight in the local time zone.
func DateOf(t time.Time) Date {
	y, m, d := t.In(time.Local).Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.Local)}
}

// ParseDate parses a YYYY-MM-DD string in local time.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// AddDays returns the day n days later.
func (d Date) AddDays(n int) Date { return Date{d.Time.AddDate(0, 0, n)} }

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is a later day than o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	// null and "" mean no date.
	if s == "" {
		*d = Date{}
		return nil
	}
	// Tolerate full timestamps written by older clients.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
