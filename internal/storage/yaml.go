package storage

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"mcwatch/internal/domain"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Servers  []domain.AddressRecord `yaml:"servers"`
	Settings map[string]string      `yaml:"settings"`
}

// YAMLStore keeps the server list and settings in a single flat file.
// Every write rewrites the file through a temp file and a rename.
type YAMLStore struct {
	path string
	mu   sync.Mutex
	data yamlFile
}

func NewYAMLStore(path string) (*YAMLStore, error) {
	s := &YAMLStore{path: path}
	if path == "" {
		return nil, errors.New("yaml store needs a file path")
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read store file: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if s.data.Settings == nil {
		s.data.Settings = make(map[string]string)
	}
	missing := false
	for key, value := range domain.DefaultSettings {
		if _, ok := s.data.Settings[key]; !ok {
			s.data.Settings[key] = value
			missing = true
		}
	}
	if missing {
		if err := s.writeLocked(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *YAMLStore) LoadAddresses() ([]domain.AddressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.Servers), nil
}

func (s *YAMLStore) SaveAddresses(records []domain.AddressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Servers
	s.data.Servers = slices.Clone(records)
	if err := s.writeLocked(); err != nil {
		s.data.Servers = prev
		return err
	}
	return nil
}

func (s *YAMLStore) GetSetting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data.Settings[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrSettingNotFound, key)
	}
	return value, nil
}

func (s *YAMLStore) SetSetting(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data.Settings[key]
	s.data.Settings[key] = value
	if err := s.writeLocked(); err != nil {
		if had {
			s.data.Settings[key] = prev
		} else {
			delete(s.data.Settings, key)
		}
		return err
	}
	return nil
}

func (s *YAMLStore) ListSettings() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data.Settings), nil
}

func (s *YAMLStore) Close() error {
	return nil
}

// NewMemoryStore returns a store that never touches disk. It starts empty
// with the default settings and loses everything on exit.
func NewMemoryStore() *YAMLStore {
	return &YAMLStore{data: yamlFile{Settings: maps.Clone(domain.DefaultSettings)}}
}

func (s *YAMLStore) writeLocked() error {
	if s.path == "" {
		return nil
	}
	out, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".servers-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
