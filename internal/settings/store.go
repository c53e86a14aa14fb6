package settings

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Store holds the current Settings and keeps the settings file in sync.
//
// Readers call Get and never block: the snapshot is replaced atomically.
// Writers are serialised by a mutex and persist before publishing, so the
// file always holds at least what readers can observe.
type Store struct {
	path    string
	mu      sync.Mutex
	current atomic.Pointer[Settings]
}

// Open loads settings from path. Any read, parse or validation failure
// degrades to Defaults(), which are written back to path immediately so a
// missing or corrupt file heals itself. Open never fails; a failure to
// persist the defaults is only logged.
func Open(path string) *Store {
	s := &Store{path: path}

	loaded, err := Load(path)
	if err != nil {
		log.Printf("[WARN] Error while reading settings from %s, resetting to defaults: %v", path, err)
		defaults := Defaults()
		loaded = &defaults
		if err := s.persist(loaded); err != nil {
			log.Printf("[ERROR] Failed to persist default settings to %s: %v", path, err)
		}
	}

	s.current.Store(loaded)
	log.Printf("[DEBUG] Initialized settings at %s: %+v", path, *loaded)
	return s
}

// Load reads and validates a settings file
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current settings snapshot.
func (s *Store) Get() Settings {
	return *s.current.Load()
}

// Set validates next, writes it to the settings file and then publishes it.
// On error the previous snapshot stays current.
func (s *Store) Set(next Settings) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(&next); err != nil {
		return err
	}

	s.current.Store(&next)
	return nil
}

// Update applies fn to a copy of the current settings and stores the result.
func (s *Store) Update(fn func(*Settings)) error {
	next := s.Get()
	fn(&next)
	return s.Set(next)
}

// persist rewrites the settings file wholesale through a temp file and rename.
func (s *Store) persist(settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	return nil
}
