package library

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// memKV is an in-memory KeyValueStore that can be told to fail.
type memKV struct {
	items   map[string]string
	writes  int
	failGet error
	failSet error
}

func newMemKV() *memKV { return &memKV{items: map[string]string{}} }

func (m *memKV) GetItem(key string) (string, bool, error) {
	if m.failGet != nil {
		return "", false, m.failGet
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memKV) SetItem(key, value string) error {
	if m.failSet != nil {
		return m.failSet
	}
	m.writes++
	m.items[key] = value
	return nil
}

func (m *memKV) RemoveItem(key string) error {
	delete(m.items, key)
	return nil
}

func tempStorage(t *testing.T) (*Storage, *memKV) {
	t.Helper()
	kv := newMemKV()
	return NewStorage(kv, zaptest.NewLogger(t)), kv
}

func TestStorageDefaults(t *testing.T) {
	s, _ := tempStorage(t)

	assert.Nil(t, s.CurrentUser())
	assert.Empty(t, s.AllUsers())
	assert.NotNil(t, s.AllUsers())
	assert.Empty(t, s.Favorites())
	assert.Empty(t, s.Borrowings())
	assert.Equal(t, ThemeAuto, s.Theme())
	assert.Equal(t, LanguageIndonesian, s.Language())
}

func TestStorageMalformedValuesReadAsDefaults(t *testing.T) {
	s, kv := tempStorage(t)
	for _, key := range allKeys {
		kv.items[key] = "{not json"
	}
	kv.items[KeyTheme] = `"purple"`

	assert.Nil(t, s.CurrentUser())
	assert.Empty(t, s.AllUsers())
	assert.Empty(t, s.Favorites())
	assert.Empty(t, s.Borrowings())
	assert.Equal(t, DefaultTheme, s.Theme())
	assert.Equal(t, DefaultLanguage, s.Language())
}

func TestStorageReadFailureReadsAsDefault(t *testing.T) {
	s, kv := tempStorage(t)
	require.NoError(t, s.AddFavorite(3))
	kv.failGet = errors.New("disk gone")

	assert.Empty(t, s.Favorites())
	assert.Equal(t, DefaultTheme, s.Theme())
}

func TestStorageWriteFailureIsReturned(t *testing.T) {
	s, kv := tempStorage(t)
	boom := errors.New("disk full")
	kv.failSet = boom

	assert.ErrorIs(t, s.AddFavorite(1), boom)
	assert.ErrorIs(t, s.SetTheme(ThemeDark), boom)
	assert.ErrorIs(t, s.AddBorrowing(Borrowing{ID: 1}), boom)
}

func TestStorageCurrentUser(t *testing.T) {
	s, kv := tempStorage(t)
	u := &User{ID: 7, Name: "Budi", Email: "budi@example.com", Role: RoleStudent}

	require.NoError(t, s.SaveCurrentUser(u))
	assert.Equal(t, u, s.CurrentUser())

	require.NoError(t, s.AddFavorite(1))
	require.NoError(t, s.RemoveCurrentUser())
	assert.Nil(t, s.CurrentUser())
	// Logging out keeps the rest of the state.
	assert.Equal(t, []int64{1}, s.Favorites())

	kv.items[KeyUser] = "null"
	assert.Nil(t, s.CurrentUser())
}

func TestStorageRegisterUser(t *testing.T) {
	s, _ := tempStorage(t)
	a := User{ID: 1, Name: "A", Email: "a@example.com"}
	b := User{ID: 2, Name: "B", Email: "b@example.com"}

	require.NoError(t, s.RegisterUser(a))
	require.NoError(t, s.RegisterUser(b))
	assert.ErrorIs(t, s.RegisterUser(User{ID: 3, Email: "a@example.com"}), ErrEmailTaken)

	if diff := cmp.Diff([]User{a, b}, s.AllUsers()); diff != "" {
		t.Fatalf("all users mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, &b, s.UserByEmail("b@example.com"))
	assert.Nil(t, s.UserByEmail("B@example.com"))
	// Registering does not log anyone in.
	assert.Nil(t, s.CurrentUser())
}

func TestStorageUpdateUser(t *testing.T) {
	s, _ := tempStorage(t)
	require.NoError(t, s.RegisterUser(User{ID: 1, Name: "A", Email: "a@example.com"}))

	found, err := s.UpdateUser(User{ID: 1, Name: "A", Email: "a@example.com", ProfileImage: "me.png"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "me.png", s.UserByEmail("a@example.com").ProfileImage)

	found, err = s.UpdateUser(User{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, s.AllUsers(), 1)
}

func TestStorageFavorites(t *testing.T) {
	s, kv := tempStorage(t)

	require.NoError(t, s.AddFavorite(3))
	require.NoError(t, s.AddFavorite(1))
	require.NoError(t, s.AddFavorite(3))
	assert.Equal(t, []int64{3, 1}, s.Favorites())

	writes := kv.writes
	require.NoError(t, s.RemoveFavorite(42))
	assert.Equal(t, writes, kv.writes, "removing an absent id must not write")

	require.NoError(t, s.RemoveFavorite(3))
	assert.Equal(t, []int64{1}, s.Favorites())
}

func TestStorageBorrowings(t *testing.T) {
	s, _ := tempStorage(t)
	d := mustDate(t, "2025-03-01")

	require.NoError(t, s.AddBorrowing(Borrowing{ID: 1, UserID: 9, BookID: 2, BorrowDate: d, DueDate: d.AddDays(7), Status: StatusBorrowed}))
	require.NoError(t, s.AddBorrowing(Borrowing{ID: 2, UserID: 9, BookID: 3, BorrowDate: d, DueDate: d.AddDays(7), Status: StatusPending}))

	got := s.Borrowings()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "2025-03-08", got[0].DueDate.String())
	assert.Nil(t, got[0].ReturnDate)

	got[0].Status = StatusReturned
	rd := d.AddDays(3)
	got[0].ReturnDate = &rd
	require.NoError(t, s.ReplaceBorrowings(got))

	got = s.Borrowings()
	assert.Equal(t, StatusReturned, got[0].Status)
	require.NotNil(t, got[0].ReturnDate)
	assert.Equal(t, "2025-03-04", got[0].ReturnDate.String())

	require.NoError(t, s.ReplaceBorrowings(nil))
	assert.Empty(t, s.Borrowings())
}

func TestStorageBorrowingsSkipOnlyBadRecords(t *testing.T) {
	s, kv := tempStorage(t)
	kv.items[KeyBorrowings] = `[
		{"id": 1, "user_id": 2, "book_id": 3, "borrow_date": "2025-03-01", "due_date": "2025-03-15", "status": "borrowed"},
		{"id": 2, "user_id": 2, "book_id": 4, "borrow_date": "2025-03-01", "due_date": null, "status": "pending"},
		{"id": 3, "user_id": 2, "book_id": 5, "borrow_date": "", "due_date": "2025-03-15T00:00:00.000Z", "status": "approved"},
		{"id": 4, "user_id": 2, "book_id": 6, "borrow_date": "01/03/2025", "due_date": "2025-03-15", "status": "borrowed"},
		42
	]`

	got := s.Borrowings()
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[1].DueDate.IsZero())
	assert.True(t, got[2].BorrowDate.IsZero())
	assert.Equal(t, "2025-03-15", got[2].DueDate.String())

	// The next write keeps the readable records.
	require.NoError(t, s.AddBorrowing(Borrowing{ID: 5, UserID: 9, BookID: 1, Status: StatusBorrowed}))
	got = s.Borrowings()
	require.Len(t, got, 4)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[0].UserID)
	assert.Equal(t, int64(5), got[3].ID)
	assert.True(t, got[1].DueDate.IsZero())
	assert.True(t, got[3].BorrowDate.IsZero())
}

func TestStorageSettings(t *testing.T) {
	s, kv := tempStorage(t)

	require.NoError(t, s.SetTheme(ThemeDark))
	require.NoError(t, s.SetLanguage(LanguageEnglish))
	assert.Equal(t, ThemeDark, s.Theme())
	assert.Equal(t, LanguageEnglish, s.Language())
	assert.Equal(t, `"dark"`, kv.items[KeyTheme])

	assert.Error(t, s.SetTheme("sepia"))
	assert.Error(t, s.SetLanguage("fr"))
	assert.Equal(t, ThemeDark, s.Theme())

	// Bare text from older clients.
	kv.items[KeyTheme] = "light"
	kv.items[KeyLanguage] = "en"
	assert.Equal(t, ThemeLight, s.Theme())
	assert.Equal(t, LanguageEnglish, s.Language())
}

func TestStorageClear(t *testing.T) {
	s, kv := tempStorage(t)
	require.NoError(t, s.SaveCurrentUser(&User{ID: 1, Email: "a@example.com"}))
	require.NoError(t, s.RegisterUser(User{ID: 1, Email: "a@example.com"}))
	require.NoError(t, s.AddFavorite(1))
	require.NoError(t, s.SetTheme(ThemeLight))
	kv.items["unrelated"] = "kept"

	require.NoError(t, s.Clear())
	assert.Equal(t, map[string]string{"unrelated": "kept"}, kv.items)
	assert.Equal(t, DefaultTheme, s.Theme())
}

func TestStorageOnSQLite(t *testing.T) {
	s := NewStorage(tempDB(t), zaptest.NewLogger(t))
	require.NoError(t, s.AddFavorite(5))
	require.NoError(t, s.SetLanguage(LanguageEnglish))
	assert.Equal(t, []int64{5}, s.Favorites())
	assert.Equal(t, LanguageEnglish, s.Language())
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}
