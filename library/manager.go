package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Validation errors surfaced to the person at the keyboard.
var (
	ErrMissingFields     = errors.New("all fields are required")
	ErrTermsNotAccepted  = errors.New("you must accept the terms and privacy policy")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrPasswordTooShort  = errors.New("password is too short")
	ErrNotLoggedIn       = errors.New("you must log in first")
	ErrInvalidDateRange  = errors.New("return date must be after the borrow date")
	ErrBorrowDateInPast  = errors.New("borrow date cannot be in the past")
	ErrBorrowingNotFound = errors.New("borrowing not found")
	ErrNotReturnable     = errors.New("borrowing is not currently held")
)

// IneligibleError reports a borrow refused by CheckEligibility.
type IneligibleError struct {
	BookID int64
	Reason Reason
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("cannot borrow book %d: %s", e.BookID, e.Reason)
}

// Is lets errors.Is(err, ErrNotLoggedIn) match the not-logged-in reason.
func (e *IneligibleError) Is(target error) bool {
	return target == ErrNotLoggedIn && e.Reason == ReasonNotLoggedIn
}

// Options tunes a LibraryManager. Zero values select the defaults.
type Options struct {
	LoanDays          int
	MinPasswordLength int
	BcryptCost        int
	// Now defaults to time.Now.
	Now func() time.Time
	// Rand shuffles recommendations; nil uses the global source.
	Rand *rand.Rand
}

const (
	DefaultLoanDays          = 14
	DefaultMinPasswordLength = 6
)

// LibraryManager is a thin façade over Storage and the Catalog, keeping CLI
// code simple.
type LibraryManager struct {
	db      *Database
	store   *Storage
	catalog *Catalog
	log     *zap.Logger
	opts    Options
}

// NewLibraryManager opens (or creates) the SQLite store at dbPath.
func NewLibraryManager(dbPath string, catalog *Catalog, log *zap.Logger, opts Options) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LoanDays <= 0 {
		opts.LoanDays = DefaultLoanDays
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = DefaultMinPasswordLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LibraryManager{
		db:      db,
		store:   NewStorage(db, log),
		catalog: catalog,
		log:     log,
		opts:    opts,
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) Catalog() *Catalog { return lm.catalog }
func (lm *LibraryManager) Storage() *Storage { return lm.store }
func (lm *LibraryManager) Today() Date       { return DateOf(lm.opts.Now()) }

// nextID derives an id from the clock, bumped past every id already taken.
func (lm *LibraryManager) nextID(taken []int64) int64 {
	id := lm.opts.Now().UnixMilli()
	if m := slices.Max(append(taken, 0)); id <= m {
		id = m + 1
	}
	return id
}

// ------------------ Accounts ------------------

// Registration is the sign-up form.
type Registration struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
	Address         string
	AcceptTerms     bool
}

// Register validates the form and appends a new student account. The new
// user still has to log in.
func (lm *LibraryManager) Register(r Registration) (*User, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)

	switch {
	case r.Name == "" || r.Email == "" || r.Password == "" || r.Phone == "":
		return nil, ErrMissingFields
	case !r.AcceptTerms:
		return nil, ErrTermsNotAccepted
	case r.Password != r.ConfirmPassword:
		return nil, ErrPasswordMismatch
	case len(r.Password) < lm.opts.MinPasswordLength:
		return nil, fmt.Errorf("%w: minimum %d characters", ErrPasswordTooShort, lm.opts.MinPasswordLength)
	}

	if lm.store.UserByEmail(r.Email) != nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(r.Password, lm.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, u := range lm.store.AllUsers() {
		ids = append(ids, u.ID)
	}
	user := User{
		ID:           lm.nextID(ids),
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: hash,
		Role:         RoleStudent,
		Phone:        r.Phone,
		Address:      strings.TrimSpace(r.Address),
	}
	if err := lm.store.RegisterUser(user); err != nil {
		return nil, err
	}
	lm.log.Info("user registered", zap.Int64("user_id", user.ID))
	return &user, nil
}

// Login checks the credentials against registered users first and the
// bundled demo accounts second, then records the current user.
func (lm *LibraryManager) Login(email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	var user User
	if stored := lm.store.UserByEmail(email); stored != nil {
		if err := checkPassword(stored.PasswordHash, password); err != nil {
			return nil, err
		}
		user = *stored
	} else if demo, ok := lm.catalog.DemoAccount(email); ok {
		if err := checkDemoPassword(demo.Password, password); err != nil {
			return nil, err
		}
		hash, err := HashPassword(password, lm.opts.BcryptCost)
		if err != nil {
			return nil, err
		}
		user = demo.User
		user.PasswordHash = hash
	} else {
		return nil, ErrInvalidCredentials
	}

	if err := lm.store.SaveCurrentUser(&user); err != nil {
		return nil, err
	}
	lm.log.Info("user logged in", zap.Int64("user_id", user.ID))
	return &user, nil
}

// Logout forgets the current user; favorites and borrowings stay on device.
func (lm *LibraryManager) Logout() error { return lm.store.RemoveCurrentUser() }

// CurrentUser returns the logged-in user, or nil.
func (lm *LibraryManager) CurrentUser() *User { return lm.store.CurrentUser() }

// Profile is the current user plus their activity counters.
type Profile struct {
	User             User
	TotalBorrowings  int
	TotalFavorites   int
	ActiveBorrowings int
}

// Profile summarises the current user's activity. "Active" counts pending
// and borrowed requests regardless of due date.
func (lm *LibraryManager) Profile() (*Profile, error) {
	user := lm.store.CurrentUser()
	if user == nil {
		return nil, ErrNotLoggedIn
	}
	total, active := 0, 0
	for _, b := range lm.store.Borrowings() {
		if b.UserID != user.ID {
			continue
		}
		total++
		if b.Status == StatusPending || b.Status == StatusBorrowed {
			active++
		}
	}
	return &Profile{
		User:             *user,
		TotalBorrowings:  total,
		TotalFavorites:   len(lm.store.Favorites()),
		ActiveBorrowings: active,
	}, nil
}

// SetProfileImage updates the current user's picture and mirrors the change
// into the registered-users collection.
func (lm *LibraryManager) SetProfileImage(ref string) (*User, error) {
	user := lm.store.CurrentUser()
	if user == nil {
		return nil, ErrNotLoggedIn
	}
	user.ProfileImage = strings.TrimSpace(ref)
	if err := lm.store.SaveCurrentUser(user); err != nil {
		return nil, err
	}
	// Demo accounts are not in all-users; only the current-user blob changes.
	if _, err := lm.store.UpdateUser(*user); err != nil {
		return nil, err
	}
	return user, nil
}

// ------------------ Favorites ------------------

// ToggleFavorite flips the favorite flag of bookID and returns the new state.
func (lm *LibraryManager) ToggleFavorite(bookID int64) (bool, error) {
	if _, err := lm.catalog.Book(bookID); err != nil {
		return false, err
	}
	if lm.IsFavorite(bookID) {
		return false, lm.store.RemoveFavorite(bookID)
	}
	return true, lm.store.AddFavorite(bookID)
}

func (lm *LibraryManager) AddFavorite(bookID int64) error {
	if _, err := lm.catalog.Book(bookID); err != nil {
		return err
	}
	return lm.store.AddFavorite(bookID)
}

func (lm *LibraryManager) RemoveFavorite(bookID int64) error { return lm.store.RemoveFavorite(bookID) }

func (lm *LibraryManager) IsFavorite(bookID int64) bool {
	return slices.Contains(lm.store.Favorites(), bookID)
}

// FavoriteBooks resolves favorite ids against the catalog, skipping ids the
// catalog no longer has.
func (lm *LibraryManager) FavoriteBooks() []Book {
	books := []Book{}
	for _, id := range lm.store.Favorites() {
		b, err := lm.catalog.Book(id)
		if err != nil {
			lm.log.Debug("favorite not in catalog", zap.Int64("book_id", id))
			continue
		}
		books = append(books, b)
	}
	return books
}

// ------------------ Circulation ------------------

// Eligibility checks whether the current user may borrow bookID today.
func (lm *LibraryManager) Eligibility(bookID int64) (Eligibility, error) {
	book, err := lm.catalog.Book(bookID)
	if err != nil {
		return Eligibility{}, err
	}
	return CheckEligibility(book, lm.store.CurrentUser(), lm.store.Borrowings(), lm.opts.Now()), nil
}

// BookDetail is everything the detail view of a book shows.
type BookDetail struct {
	Book            Book
	Eligibility     Eligibility
	Favorite        bool
	Recommendations []Book
}

func (lm *LibraryManager) BookDetail(bookID int64) (*BookDetail, error) {
	book, err := lm.catalog.Book(bookID)
	if err != nil {
		return nil, err
	}
	return &BookDetail{
		Book:            book,
		Eligibility:     CheckEligibility(book, lm.store.CurrentUser(), lm.store.Borrowings(), lm.opts.Now()),
		Favorite:        lm.IsFavorite(bookID),
		Recommendations: lm.catalog.Recommendations(book, DefaultRecommendations, lm.opts.Rand),
	}, nil
}

// BorrowRequest is the borrow form. A zero BorrowDate means today and a zero
// DueDate means BorrowDate plus the configured loan period.
type BorrowRequest struct {
	BookID     int64
	BorrowDate Date
	DueDate    Date
}

// DefaultDueDate is the due date proposed for a loan starting on borrow.
func (lm *LibraryManager) DefaultDueDate(borrow Date) Date { return borrow.AddDays(lm.opts.LoanDays) }

// Borrow validates the request, re-checks eligibility, and appends a new
// borrowing with status borrowed. The loan may not start before today.
func (lm *LibraryManager) Borrow(req BorrowRequest) (*Borrowing, error) {
	book, err := lm.catalog.Book(req.BookID)
	if err != nil {
		return nil, err
	}

	if req.BorrowDate.IsZero() {
		req.BorrowDate = lm.Today()
	}
	if req.DueDate.IsZero() {
		req.DueDate = lm.DefaultDueDate(req.BorrowDate)
	}
	if req.BorrowDate.Before(lm.Today()) {
		return nil, ErrBorrowDateInPast
	}
	if !req.DueDate.After(req.BorrowDate) {
		return nil, ErrInvalidDateRange
	}

	user := lm.store.CurrentUser()
	if user == nil {
		return nil, ErrNotLoggedIn
	}

	borrowings := lm.store.Borrowings()
	if e := CheckEligibility(book, user, borrowings, lm.opts.Now()); !e.Allowed {
		return nil, &IneligibleError{BookID: book.ID, Reason: e.Reason}
	}

	ids := make([]int64, 0, len(borrowings))
	for _, b := range borrowings {
		ids = append(ids, b.ID)
	}
	b := Borrowing{
		ID:         lm.nextID(ids),
		UserID:     user.ID,
		BookID:     book.ID,
		BorrowDate: req.BorrowDate,
		DueDate:    req.DueDate,
		Status:     StatusBorrowed,
	}
	if err := lm.store.AddBorrowing(b); err != nil {
		return nil, err
	}
	lm.log.Info("book borrowed",
		zap.Int64("borrowing_id", b.ID),
		zap.Int64("book_id", b.BookID),
		zap.Int64("user_id", b.UserID),
		zap.Stringer("due", b.DueDate))
	return &b, nil
}

// Return marks one of the current user's held borrowings as returned today.
func (lm *LibraryManager) Return(borrowingID int64) (*Borrowing, error) {
	user := lm.store.CurrentUser()
	if user == nil {
		return nil, ErrNotLoggedIn
	}

	borrowings := lm.store.Borrowings()
	i := slices.IndexFunc(borrowings, func(b Borrowing) bool {
		return b.ID == borrowingID && b.UserID == user.ID
	})
	if i < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBorrowingNotFound, borrowingID)
	}
	if !borrowings[i].Status.Holding() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotReturnable, borrowings[i].Status)
	}

	today := lm.Today()
	borrowings[i].Status = StatusReturned
	borrowings[i].ReturnDate = &today
	if err := lm.store.ReplaceBorrowings(borrowings); err != nil {
		return nil, err
	}
	lm.log.Info("book returned", zap.Int64("borrowing_id", borrowingID))
	returned := borrowings[i]
	return &returned, nil
}

// MyBorrowings lists the current user's borrowings with their books, newest
// borrow date first. It is empty when nobody is logged in.
func (lm *LibraryManager) MyBorrowings() []BorrowingWithBook {
	out := []BorrowingWithBook{}
	user := lm.store.CurrentUser()
	if user == nil {
		return out
	}
	for _, b := range lm.store.Borrowings() {
		if b.UserID != user.ID {
			continue
		}
		entry := BorrowingWithBook{Borrowing: b}
		if book, err := lm.catalog.Book(b.BookID); err == nil {
			entry.Book = &book
		}
		out = append(out, entry)
	}
	slices.SortStableFunc(out, func(a, b BorrowingWithBook) int {
		return b.BorrowDate.Compare(a.BorrowDate.Time)
	})
	return out
}

// ------------------ Settings ------------------

func (lm *LibraryManager) Theme() ThemeMode                { return lm.store.Theme() }
func (lm *LibraryManager) SetTheme(mode ThemeMode) error   { return lm.store.SetTheme(mode) }
func (lm *LibraryManager) Language() Language              { return lm.store.Language() }
func (lm *LibraryManager) SetLanguage(lang Language) error { return lm.store.SetLanguage(lang) }

// Reset wipes every persisted key on this device.
func (lm *LibraryManager) Reset() error {
	lm.log.Warn("resetting local storage")
	return lm.store.Clear()
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-5d %-30s %-25s %-18s %d/%d", b.ID, Truncate(b.Title, 30), Truncate(b.Author, 25), Truncate(b.Genre, 18), b.Available, b.Stock)
}

// Truncate shortens s to maxLen runes, ending in "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
