// Package session persists the small amount of client-local state the
// chat client keeps between runs: the logged-in user and the selected
// channel, plus the server endpoints.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nwestfall/parley/internal/types"
)

// Well-known keys in the client-local store.
const (
	KeyUser            = "user"
	KeySelectedChannel = "selectedChannel"
)

// Store is a key-value persistence surface with last-write-wins
// semantics and no versioning.
type Store interface {
	// Get returns the stored value for key, or nil when absent.
	Get(key string) (json.RawMessage, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value any) error
	// Delete removes key if present.
	Delete(key string) error
}

// FileStore keeps the store in one JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStore returns the store at ~/.config/parley/state.json.
func DefaultStore() (*FileStore, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return NewFileStore(filepath.Join(dir, "state.json")), nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "parley"), nil
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(s.path, data, 0o600)
}

// Get returns the stored value for key, or nil when absent.
func (s *FileStore) Get(key string) (json.RawMessage, error) {
	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	return entries[key], nil
}

// Set stores value under key, replacing any previous value.
func (s *FileStore) Set(key string, value any) error {
	entries, err := s.read()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entries[key] = data
	return s.write(entries)
}

// Delete removes key if present.
func (s *FileStore) Delete(key string) error {
	entries, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.write(entries)
}

// SaveUser persists the logged-in user, token included.
func SaveUser(st Store, u types.User) error {
	return st.Set(KeyUser, u)
}

// LoadUser reads the persisted user. ok is false when nobody is
// logged in.
func LoadUser(st Store) (types.User, bool, error) {
	raw, err := st.Get(KeyUser)
	if err != nil {
		return types.User{}, false, err
	}
	if raw == nil {
		return types.User{}, false, nil
	}
	var u types.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return types.User{}, false, err
	}
	if u.Email == "" {
		return types.User{}, false, nil
	}
	return u, true, nil
}

// SaveSelectedChannel persists the selected channel.
func SaveSelectedChannel(st Store, ch types.Channel) error {
	return st.Set(KeySelectedChannel, ch)
}

// LoadSelectedChannel reads the persisted selection, if any.
func LoadSelectedChannel(st Store) (types.Channel, bool, error) {
	raw, err := st.Get(KeySelectedChannel)
	if err != nil {
		return types.Channel{}, false, err
	}
	if raw == nil {
		return types.Channel{}, false, nil
	}
	var ch types.Channel
	if err := json.Unmarshal(raw, &ch); err != nil {
		return types.Channel{}, false, err
	}
	if ch.ID == "" {
		return types.Channel{}, false, nil
	}
	return ch, true, nil
}

// Clear removes the persisted user and selection.
func Clear(st Store) error {
	if err := st.Delete(KeyUser); err != nil {
		return err
	}
	return st.Delete(KeySelectedChannel)
}
