package users

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hemaweb/featmock/internal/id"
	"github.com/hemaweb/featmock/pkg/mock"
)

var (
	// ErrNotFound is returned for an unknown user id.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when a username is already taken.
	ErrConflict = errors.New("username already exists")
	// ErrInvalid is returned when username, name or email is missing.
	ErrInvalid = errors.New("username, name and email are required")
	// ErrInvalidStatus is returned for a status other than active or inactive.
	ErrInvalidStatus = errors.New("status must be active or inactive")
)

// Store is the in-memory user dataset. All methods are safe for concurrent
// use and return copies, never references into the store.
type Store struct {
	mu         sync.Mutex
	users      []User
	activities []Activity

	now   func() time.Time
	newID func() string
}

// NewStore returns a store holding the seed data.
func NewStore() *Store {
	s := &Store{
		now:   time.Now,
		newID: id.Numeric,
	}
	s.Reset()
	return s
}

// Reset restores the seed data.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = seedUsers()
	s.activities = seedActivities()
}

// Len returns the number of users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// List filters by keyword and returns the requested page. The keyword is
// matched case-insensitively against name, username, email and phone.
func (s *Store) List(keyword string, page, size int) mock.Page[User] {
	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(keyword))
	matched := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if term == "" || matches(u, term) {
			matched = append(matched, u.clone())
		}
	}
	return mock.Paginate(matched, page, size)
}

func matches(u User, term string) bool {
	return strings.Contains(strings.ToLower(u.Name), term) ||
		strings.Contains(strings.ToLower(u.Username), term) ||
		strings.Contains(strings.ToLower(u.Email), term) ||
		strings.Contains(u.Phone, term)
}

// Get returns the user with the given id.
func (s *Store) Get(id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.users[i].clone(), nil
}

// Create validates in and inserts a new user at the head of the list.
func (s *Store) Create(in Input) (User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
		return User{}, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.usernameTaken(in.Username, "") {
		return User{}, fmt.Errorf("%w: %s", ErrConflict, in.Username)
	}

	now := s.now().UTC().Format(time.RFC3339)
	u := User{
		ID:          s.newID(),
		Username:    in.Username,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Role:        orDefault(in.Role, RoleUser),
		Status:      orDefault(in.Status, StatusActive),
		Avatar:      in.Avatar,
		Bio:         in.Bio,
		Groups:      cloneStrings(in.Groups),
		Permissions: cloneStrings(in.Permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.users = slices.Insert(s.users, 0, u)
	return u.clone(), nil
}

// Update merges the non-nil fields of p into the user and refreshes
// UpdatedAt. ID and CreatedAt never change.
func (s *Store) Update(id string, p Patch) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return User{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, required := range []*string{p.Username, p.Name, p.Email} {
		if required != nil && strings.TrimSpace(*required) == "" {
			return User{}, ErrInvalid
		}
	}
	if p.Username != nil && s.usernameTaken(*p.Username, id) {
		return User{}, fmt.Errorf("%w: %s", ErrConflict, *p.Username)
	}

	u := s.users[i]
	setString(&u.Username, p.Username)
	setString(&u.Name, p.Name)
	setString(&u.Email, p.Email)
	setString(&u.Phone, p.Phone)
	setString(&u.Role, p.Role)
	setString(&u.Status, p.Status)
	setString(&u.Avatar, p.Avatar)
	setString(&u.Bio, p.Bio)
	if p.Groups != nil {
		u.Groups = cloneStrings(*p.Groups)
	}
	if p.Permissions != nil {
		u.Permissions = cloneStrings(*p.Permissions)
	}
	u.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	s.users[i] = u
	return u.clone(), nil
}

// SetStatus changes only the status of a user.
func (s *Store) SetStatus(id, status string) (User, error) {
	if status != StatusActive && status != StatusInactive {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.Update(id, Patch{Status: &status})
}

// Delete removes the user with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.users = slices.Delete(s.users, i, i+1)
	return nil
}

// BatchDelete removes every listed user and returns how many were removed.
// Unknown ids are ignored.
func (s *Store) BatchDelete(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.users)
	s.users = slices.DeleteFunc(s.users, func(u User) bool {
		return slices.Contains(ids, u.ID)
	})
	return before - len(s.users)
}

// Activities returns the activity records of one user, never nil.
func (s *Store) Activities(userID string) []Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Activity{}
	for _, a := range s.activities {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.users, func(u User) bool { return u.ID == id })
}

func (s *Store) usernameTaken(username, exceptID string) bool {
	return slices.ContainsFunc(s.users, func(u User) bool {
		return u.Username == username && u.ID != exceptID
	})
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
