package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// FileStore keeps both keys in a single JSON document. Saves go through a
// temp file and a rename, so readers see either the old pair or the new
// pair.
type FileStore struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// DefaultPath is where the CLI keeps its session when STORE_PATH is unset.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "rolegate", "session.json")
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Save(s domain.Session) error {
	token, user, err := encode(s)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]string{TokenKey: token, UserKey: user})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (f *FileStore) Load() (domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("session file unreadable, treating as signed out")
		}
		return domain.Session{}, false
	}

	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("session file corrupt, treating as signed out")
		return domain.Session{}, false
	}
	s, ok := decode(doc[TokenKey], doc[UserKey])
	if !ok {
		f.log.Warn().Str("path", f.path).Msg("stored session incomplete, treating as signed out")
	}
	return s, ok
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
