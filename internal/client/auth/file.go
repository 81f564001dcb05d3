package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound is returned when no credential record exists
	ErrNotFound = errors.New("credentials not found")
	// ErrMalformed is returned when the record cannot be used for redeem
	ErrMalformed = errors.New("malformed credential record")
	// ErrInsecurePermissions is returned when group or other can access the record
	ErrInsecurePermissions = errors.New("credentials file is accessible by other users")
)

const (
	configDir = ".clonk"
	authFile  = "auth"

	dirMode  = 0o700
	fileMode = 0o600
)

// Credentials is the record written by login and read by redeem
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Cookies  string `json:"cookies"`
}

// Store reads and writes the credential record at a fixed path
type Store struct {
	path string
}

// NewStore returns a store rooted at <home>/.clonk/auth
func NewStore() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// NewStoreAt returns a store backed by an explicit file path
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the path to the credential record
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir, authFile), nil
}

// Path returns the file backing the store
func (s *Store) Path() string {
	return s.path
}

// Load reads the credential record
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrMalformed, s.path, err)
	}

	if creds.Cookies == "" {
		return nil, fmt.Errorf("%w: %s has no cookies", ErrMalformed, s.path)
	}

	return &creds, nil
}

// CheckPermissions reports ErrInsecurePermissions when the record's mode is wider than 0600
func (s *Store) CheckPermissions() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat credentials file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return fmt.Errorf("%w: %s has mode %04o, expected %04o", ErrInsecurePermissions, s.path, mode, fileMode)
	}
	return nil
}

// Save writes the credential record, replacing any existing one
func (s *Store) Save(creds *Credentials) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Write with 0600 permissions (read/write for owner only)
	if err := os.WriteFile(s.path, data, fileMode); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}
