package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords so
// login failures don't leak which usernames exist.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is one account from configuration. Non-admin users are scoped to
// the client their ClientCode names.
type User struct {
	Username     string
	Name         string
	PasswordHash string
	ClientCode   string
	Role         string
}

// Registry authenticates users against the configured account list.
type Registry struct {
	users map[string]User
}

// NewRegistry indexes the configured users by username.
func NewRegistry(users []User) *Registry {
	indexed := make(map[string]User, len(users))
	for _, u := range users {
		indexed[u.Username] = u
	}
	return &Registry{users: indexed}
}

// Authenticate checks a username/password pair against the registry.
func (r *Registry) Authenticate(username, password string) (*User, error) {
	user, ok := r.users[username]
	if !ok {
		// Burn a comparison anyway so the timing matches a real user.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// HashPassword bcrypt-hashes a password for the users file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
