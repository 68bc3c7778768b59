package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/datastore"
)

// DatasetName is the store name of the users document.
const DatasetName = "users"

// Logger defines the logging interface used by Users.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewDataset creates the users dataset stored at dir/users.json.
func NewDataset(dir string) *datastore.Dataset[Document] {
	return datastore.New(dir, DatasetName, NewDocument)
}

// Users manages accounts on top of a persisted dataset.
//
// All public methods are thread-safe. Returned users are copies.
type Users struct {
	ds     *datastore.Dataset[Document]
	logger Logger
}

// NewUsers creates a user store over ds. Call Load before use.
func NewUsers(ds *datastore.Dataset[Document]) *Users {
	return &Users{ds: ds, logger: noopLogger{}}
}

// SetLogger sets the logger for the user store.
func (u *Users) SetLogger(logger Logger) {
	u.logger = logger
}

// Load reads the users document, creating an empty one on first run.
func (u *Users) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := u.ds.Load(); err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	return nil
}

// AddUser creates an account with PermissionNone.
//
// The username must be non-empty and unique; the password must be
// MinPasswordLength..MaxPasswordLength characters. All violations are
// reported together as an INVALID_REQUEST.
func (u *Users) AddUser(ctx context.Context, username, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	verr := apperr.Invalid("invalid user create request")
	if username == "" {
		verr.AddField(FieldUsername, apperr.ReasonNotProvided)
	}
	switch n := len(password); {
	case n == 0:
		verr.AddField(FieldPassword, apperr.ReasonNotProvided)
	case n < MinPasswordLength || n > MaxPasswordLength:
		verr.AddField(FieldPassword, apperr.ReasonInvalidValue)
	}

	// Hash outside the dataset lock; argon2id is deliberately slow.
	var hash string
	if !verr.HasFields() {
		var err error
		if hash, err = HashPassword(password); err != nil {
			return nil, fmt.Errorf("adding user: %w", err)
		}
	}

	var created User
	err := u.ds.Update(func(doc *Document) error {
		if username != "" && datastore.Exists(doc.Users, FieldUsername, username) {
			verr.AddField(FieldUsername, apperr.ReasonNotUnique)
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		created = User{
			ID:           doc.CurrentUserID,
			Username:     username,
			PasswordHash: hash,
			Permission:   PermissionNone,
		}
		datastore.Increment(&doc.CurrentUserID)
		doc.Users = append(doc.Users, created)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("adding user", err)
	}

	u.logger.Info("user added", "user_id", created.ID, "username", created.Username)
	return &created, nil
}

// Authenticate checks a username and password.
// Any mismatch, including an unknown username, is ErrInvalidCredentials.
func (u *Users) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := u.find(ctx, FieldUsername, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		u.logger.Warn("stored password hash unusable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns the user with the given id.
func (u *Users) GetUser(ctx context.Context, id int) (*User, error) {
	return u.find(ctx, FieldUserID, id)
}

// ListUsers returns every account in creation order.
func (u *Users) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []User
	err := u.ds.View(func(doc *Document) error {
		out = append([]User(nil), doc.Users...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return out, nil
}

// Count returns the number of accounts.
func (u *Users) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := u.ds.View(func(doc *Document) error {
		n = len(doc.Users)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// SetPermission changes a user's permission level.
func (u *Users) SetPermission(ctx context.Context, id int, perm Permission) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !perm.IsValid() {
		return nil, apperr.Invalid("invalid permission").AddField(FieldPermission, apperr.ReasonInvalidValue)
	}

	var updated User
	err := u.ds.Update(func(doc *Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == id {
				doc.Users[i].Permission = perm
				updated = doc.Users[i]
				return nil
			}
		}
		return apperr.NotFound("user not found", FieldUserID)
	})
	if err != nil {
		return nil, wrapStoreErr("setting permission", err)
	}

	u.logger.Info("user permission changed", "user_id", id, "permission", perm)
	return &updated, nil
}

// RemoveUser deletes a user. Removing an absent id fails with NOT_FOUND.
func (u *Users) RemoveUser(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := u.ds.Update(func(doc *Document) error {
		var removed int
		doc.Users, removed = datastore.Without(doc.Users, FieldUserID, id)
		if removed == 0 {
			return apperr.NotFound("user not found", FieldUserID)
		}
		return nil
	})
	if err != nil {
		return wrapStoreErr("removing user", err)
	}

	u.logger.Info("user removed", "user_id", id)
	return nil
}

func (u *Users) find(ctx context.Context, field string, value any) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		found User
		ok    bool
	)
	err := u.ds.View(func(doc *Document) error {
		found, ok = datastore.Find(doc.Users, field, value)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("user not found", field)
	}
	return &found, nil
}

func wrapStoreErr(op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
