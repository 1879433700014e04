package user

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const maxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

func isValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Directory is an in-memory account registry keyed by id and lowercased email.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
	now     func() time.Time
}

func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// Register creates a new customer
func (d *Directory) Register(email, password, name string) (*User, error) {
	return d.RegisterWithRole(email, password, name, auth.RoleCustomer)
}

// RegisterAdmin creates a new admin user
func (d *Directory) RegisterAdmin(email, password, name string) (*User, error) {
	return d.RegisterWithRole(email, password, name, auth.RoleAdmin)
}

func (d *Directory) RegisterWithRole(email, password, name, role string) (*User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if name == "" {
		return nil, ErrInvalidName
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(email)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byEmail[key]; exists {
		return nil, ErrEmailTaken
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    d.now(),
	}
	d.byID[u.ID] = u
	d.byEmail[key] = u.ID
	return u, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown email and a
// wrong password.
func (d *Directory) Authenticate(email, password string) (*User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var u *User
	if ok {
		u = d.byID[id]
	}
	d.mu.RUnlock()

	if u == nil || !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (d *Directory) Get(id string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}
