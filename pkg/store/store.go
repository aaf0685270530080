// Package store persists the API key, the cached credit balance, user
// settings and account details between runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/illustraitor/cli/pkg/illustraitor"
)

// Field names.
const (
	FieldAPIKey    = "api_key"
	FieldCredits   = "credits"
	FieldUserEmail = "user.email"
	FieldUserName  = "user.name"
	FieldUserID    = "user.id"

	SettingEndpoint     = "settings.api_endpoint"
	SettingDefaultStyle = "settings.default_style"

	settingsPrefix = "settings."
	dbFile         = "state.db"

	// DefaultKeyringService is the keychain service name the key is filed under.
	DefaultKeyringService = "illustraitor"
)

// KnownSettings lists the settings that can be read and written by name.
var KnownSettings = []string{SettingEndpoint, SettingDefaultStyle}

var (
	ErrEmptyKey       = errors.New("API key is empty")
	ErrMaskedKey      = errors.New("API key is a masked display copy")
	ErrUnknownSetting = errors.New("unknown setting")
)

// User is the account created by registration.
type User struct {
	Email string
	Name  string
	ID    string
}

// Options configures Open.
type Options struct {
	// Dir holds the state database. Defaults to DefaultDir().
	Dir string
	// UseKeyring stores the API key in the OS keychain instead of the state database.
	UseKeyring     bool
	KeyringService string
	Logger         *zap.Logger
}

// Store is the persisted key-value state. It is safe for concurrent use;
// writes are last-write-wins.
type Store struct {
	db     *sql.DB
	kv     kvTable
	secret secretBackend
	dir    string
	logger *zap.Logger
}

var _ illustraitor.KeySource = (*Store)(nil)

// DefaultDir returns the per-user directory for persisted state.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(base, "illustraitor"), nil
}

// Open creates the state directory if needed, opens the database and applies
// the schema.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := opts.Dir
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := openDB(filepath.Join(dir, dbFile))
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, kv: kvTable{db: db}, dir: dir, logger: logger}
	if opts.UseKeyring {
		service := opts.KeyringService
		if service == "" {
			service = DefaultKeyringService
		}
		s.secret = keyringSecret{service: service, user: FieldAPIKey}
	} else {
		s.secret = kvSecret{kv: s.kv}
	}
	logger.Debug("state opened", zap.String("dir", dir), zap.Stringer("key_backend", s.secret))
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the state database.
func (s *Store) Dir() string { return s.dir }

// KeyBackend names where the API key is kept.
func (s *Store) KeyBackend() string { return s.secret.String() }

// APIKey returns the stored key exactly as it was saved.
func (s *Store) APIKey(ctx context.Context) (string, bool, error) {
	return s.secret.get(ctx)
}

// SetAPIKey saves key. Surrounding whitespace is dropped; the key is
// otherwise stored verbatim and never validated against a format.
func (s *Store) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if illustraitor.IsMasked(key) {
		return ErrMaskedKey
	}
	return s.secret.set(ctx, key)
}

// ClearAPIKey removes the key. Clearing an absent key is not an error.
func (s *Store) ClearAPIKey(ctx context.Context) error {
	return s.secret.delete(ctx)
}

// Credits returns the cached balance, which may be stale.
func (s *Store) Credits(ctx context.Context) (int, bool, error) {
	v, ok, err := s.kv.get(ctx, FieldCredits)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("cached credits %q is not a number: %w", v, err)
	}
	return n, true, nil
}

// SetCredits overwrites the cached balance.
func (s *Store) SetCredits(ctx context.Context, n int) error {
	return s.kv.set(ctx, FieldCredits, strconv.Itoa(max(0, n)))
}

// AddCredits adds n to the cached balance and returns the new value.
// The balance never drops below zero.
func (s *Store) AddCredits(ctx context.Context, n int) (int, error) {
	return s.kv.add(ctx, FieldCredits, n)
}

// SettingName normalizes a setting name, accepting it with or without the
// "settings." prefix.
func SettingName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, settingsPrefix) {
		name = settingsPrefix + name
	}
	if !lo.Contains(KnownSettings, name) {
		return "", fmt.Errorf("%w %q (known: %s)", ErrUnknownSetting, name, strings.Join(KnownSettings, ", "))
	}
	return name, nil
}

// Setting returns a persisted setting.
func (s *Store) Setting(ctx context.Context, name string) (string, bool, error) {
	name, err := SettingName(name)
	if err != nil {
		return "", false, err
	}
	return s.kv.get(ctx, name)
}

// SetSetting persists a setting. An empty value removes it.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	name, err := SettingName(name)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return s.kv.delete(ctx, name)
	}
	return s.kv.set(ctx, name, value)
}

// Settings returns every persisted setting keyed by full name.
func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	return s.kv.list(ctx, settingsPrefix)
}

// User returns the registered account, if any.
func (s *Store) User(ctx context.Context) (User, bool, error) {
	fields, err := s.kv.list(ctx, "user.")
	if err != nil {
		return User{}, false, err
	}
	if len(fields) == 0 {
		return User{}, false, nil
	}
	return User{
		Email: fields[FieldUserEmail],
		Name:  fields[FieldUserName],
		ID:    fields[FieldUserID],
	}, true, nil
}

// SetUser records the registered account. Empty fields are skipped.
func (s *Store) SetUser(ctx context.Context, u User) error {
	for name, value := range map[string]string{
		FieldUserEmail: u.Email,
		FieldUserName:  u.Name,
		FieldUserID:    u.ID,
	} {
		if value == "" {
			continue
		}
		if err := s.kv.set(ctx, name, value); err != nil {
			return err
		}
	}
	return nil
}

// Reset wipes every persisted field and the stored key.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.secret.delete(ctx); err != nil {
		return err
	}
	return s.kv.clear(ctx)
}
