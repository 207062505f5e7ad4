package domain

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the local record mirroring an identity-provider account.
// AuthID is unique; Role is assigned once at creation and never touched by sync.
type User struct {
	ID        string    `json:"id"`
	AuthID    string    `json:"authId"`
	Email     string    `json:"email"`
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Initial is the avatar letter shown in the navbar.
func (u *User) Initial() string {
	source := u.Email
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) != "" {
		source = strings.TrimSpace(*u.FirstName)
	}
	r, _ := utf8.DecodeRuneInString(source)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// UserProfile carries the provider-owned fields of a user. Role is deliberately absent.
type UserProfile struct {
	AuthID    string
	Email     string
	FirstName *string
	LastName  *string
}

type UserRepository interface {
	// UpsertByAuthID inserts with RoleUser or refreshes email and names of an
	// existing row. created reports whether this call inserted the row.
	UpsertByAuthID(ctx context.Context, profile UserProfile) (user *User, created bool, err error)
	// EnsureByAuthID inserts with RoleUser when absent and otherwise returns the
	// stored row untouched; created is false when another writer got there first.
	EnsureByAuthID(ctx context.Context, profile UserProfile) (user *User, created bool, err error)
	GetByAuthID(ctx context.Context, authID string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
}

type UserUsecase interface {
	Me(ctx context.Context, sc *SessionContext) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, error)
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
