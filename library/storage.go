package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Fixed keys of the persisted state.
const (
	KeyUser       = "@library:user"
	KeyAllUsers   = "@library:all_users"
	KeyFavorites  = "@library:favorites"
	KeyBorrowings = "@library:borrowings"
	KeyTheme      = "@library:theme"
	KeyLanguage   = "@library:language"
)

var allKeys = []string{KeyUser, KeyAllUsers, KeyFavorites, KeyBorrowings, KeyTheme, KeyLanguage}

// Defaults returned when a preference is absent or unreadable.
const (
	DefaultTheme    = ThemeAuto
	DefaultLanguage = LanguageIndonesian
)

// ErrEmailTaken is returned when registering an email already in all-users.
var ErrEmailTaken = errors.New("email is already registered")

// Storage reads and writes the JSON blobs kept under the fixed keys.
//
// Reads never fail: an absent, unreadable or malformed value is logged and
// replaced by the type's default, so callers cannot tell "no data" from
// "read failed". Writes replace the whole blob and are not transactional
// across keys.
type Storage struct {
	kv  KeyValueStore
	log *zap.Logger
}

// NewStorage wraps kv. A nil logger discards log output.
func NewStorage(kv KeyValueStore, log *zap.Logger) *Storage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Storage{kv: kv, log: log.Named("storage")}
}

// load decodes the JSON value under key into dst and reports whether it did.
func (s *Storage) load(key string, dst any) bool {
	raw, ok, err := s.kv.GetItem(key)
	if err != nil {
		s.log.Error("read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warn("malformed value treated as absent", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Storage) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.SetItem(key, string(data)); err != nil {
		s.log.Error("write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// ------------------ Users ------------------

// CurrentUser returns the logged-in user, or nil.
func (s *Storage) CurrentUser() *User {
	var u *User
	if !s.load(KeyUser, &u) {
		return nil
	}
	return u
}

func (s *Storage) SaveCurrentUser(u *User) error { return s.save(KeyUser, u) }

// RemoveCurrentUser logs out; other keys are left untouched.
func (s *Storage) RemoveCurrentUser() error {
	if err := s.kv.RemoveItem(KeyUser); err != nil {
		s.log.Error("remove failed", zap.String("key", KeyUser), zap.Error(err))
		return err
	}
	return nil
}

// AllUsers returns every registered user, or an empty slice.
func (s *Storage) AllUsers() []User {
	var users []User
	if !s.load(KeyAllUsers, &users) || users == nil {
		return []User{}
	}
	return users
}

// UserByEmail looks up a registered user by exact email.
func (s *Storage) UserByEmail(email string) *User {
	for _, u := range s.AllUsers() {
		if u.Email == email {
			return &u
		}
	}
	return nil
}

// RegisterUser appends u to all-users. It does not make u the current user.
func (s *Storage) RegisterUser(u User) error {
	users := s.AllUsers()
	if slices.ContainsFunc(users, func(existing User) bool { return existing.Email == u.Email }) {
		return ErrEmailTaken
	}
	return s.save(KeyAllUsers, append(users, u))
}

// UpdateUser replaces the all-users entry with the same email. It reports
// whether an entry was found.
func (s *Storage) UpdateUser(u User) (bool, error) {
	users := s.AllUsers()
	i := slices.IndexFunc(users, func(existing User) bool { return existing.Email == u.Email })
	if i < 0 {
		return false, nil
	}
	users[i] = u
	return true, s.save(KeyAllUsers, users)
}

// ------------------ Favorites ------------------

// Favorites returns the favorite book ids in insertion order.
func (s *Storage) Favorites() []int64 {
	var ids []int64
	if !s.load(KeyFavorites, &ids) || ids == nil {
		return []int64{}
	}
	return ids
}

// AddFavorite appends id unless it is already present.
func (s *Storage) AddFavorite(id int64) error {
	ids := s.Favorites()
	if slices.Contains(ids, id) {
		return nil
	}
	return s.save(KeyFavorites, append(ids, id))
}

// RemoveFavorite drops id; a missing id leaves the blob unchanged.
func (s *Storage) RemoveFavorite(id int64) error {
	ids := s.Favorites()
	if !slices.Contains(ids, id) {
		return nil
	}
	return s.save(KeyFavorites, slices.DeleteFunc(ids, func(v int64) bool { return v == id }))
}

// ------------------ Borrowings ------------------

// Borrowings returns every borrowing of every user. A malformed record is
// logged and skipped without discarding its neighbours.
func (s *Storage) Borrowings() []Borrowing {
	var raw []json.RawMessage
	if !s.load(KeyBorrowings, &raw) {
		return []Borrowing{}
	}
	bs := make([]Borrowing, 0, len(raw))
	for i, r := range raw {
		var b Borrowing
		if err := json.Unmarshal(r, &b); err != nil {
			s.log.Warn("malformed borrowing skipped",
				zap.String("key", KeyBorrowings), zap.Int("index", i), zap.Error(err))
			continue
		}
		bs = append(bs, b)
	}
	return bs
}

func (s *Storage) AddBorrowing(b Borrowing) error {
	return s.save(KeyBorrowings, append(s.Borrowings(), b))
}

// ReplaceBorrowings overwrites the whole collection.
func (s *Storage) ReplaceBorrowings(bs []Borrowing) error {
	if bs == nil {
		bs = []Borrowing{}
	}
	return s.save(KeyBorrowings, bs)
}

// ------------------ Settings ------------------

// loadText reads a JSON string preference. Bare text written by older
// clients is accepted as-is.
func (s *Storage) loadText(key string) (string, bool) {
	raw, ok, err := s.kv.GetItem(key)
	if err != nil {
		s.log.Error("read failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err != nil {
		text = raw
	}
	return text, text != ""
}

// Theme returns the stored theme, or DefaultTheme.
func (s *Storage) Theme() ThemeMode {
	raw, ok := s.loadText(KeyTheme)
	if !ok {
		return DefaultTheme
	}
	mode, err := ParseThemeMode(raw)
	if err != nil {
		s.log.Warn("malformed value treated as absent", zap.String("key", KeyTheme), zap.Error(err))
		return DefaultTheme
	}
	return mode
}

func (s *Storage) SetTheme(mode ThemeMode) error {
	if _, err := ParseThemeMode(string(mode)); err != nil {
		return err
	}
	return s.save(KeyTheme, mode)
}

// Language returns the stored language, or DefaultLanguage.
func (s *Storage) Language() Language {
	raw, ok := s.loadText(KeyLanguage)
	if !ok {
		return DefaultLanguage
	}
	lang, err := ParseLanguage(raw)
	if err != nil {
		s.log.Warn("malformed value treated as absent", zap.String("key", KeyLanguage), zap.Error(err))
		return DefaultLanguage
	}
	return lang
}

func (s *Storage) SetLanguage(lang Language) error {
	if _, err := ParseLanguage(string(lang)); err != nil {
		return err
	}
	return s.save(KeyLanguage, lang)
}

// Clear removes every key, returning the first failure after trying all.
func (s *Storage) Clear() error {
	var first error
	for _, key := range allKeys {
		if err := s.kv.RemoveItem(key); err != nil {
			s.log.Error("remove failed", zap.String("key", key), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
