package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"baitboard/internal/tagging"
)

// Store keeps the current settings in memory and mirrors every change to the
// yaml file. File I/O goes through injected load/save funcs so tests never
// touch the filesystem unless they want to.
//
// Store implements telephony.PersonaSource and calls.Tagger so the webhook
// and ingest paths always see the latest saved state.
type Store struct {
	path string
	load func(path string) ([]byte, error)
	save func(path string, data []byte) error

	mu      sync.RWMutex
	current Settings
	tagger  *tagging.Tagger
}

// NewStore builds a Store over path with real file I/O.
func NewStore(path string) *Store {
	return NewStoreWithIO(path, os.ReadFile, atomicWrite)
}

// NewStoreWithIO builds a Store with explicit I/O collaborators.
func NewStoreWithIO(path string, load func(string) ([]byte, error), save func(string, []byte) error) *Store {
	s := &Store{path: path, load: load, save: save}
	s.swap(Default())
	return s
}

// Load reads the settings file. A missing file is not an error: the defaults
// stay in effect and are written out on the first Put.
func (s *Store) Load() error {
	data, err := s.load(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings %s: %w", s.path, err)
	}
	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("settings %s: %w", s.path, err)
	}
	s.swap(loaded)
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.current)
}

// Put validates, persists, and activates new settings. The in-memory state
// only changes after the file write succeeds.
func (s *Store) Put(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.save(s.path, data); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	s.swap(next)
	return nil
}

// ActivePersona reports the persona the voice agent should answer with.
func (s *Store) ActivePersona() (id, voice, greeting string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.current.Active()
	if !ok {
		return "", "", ""
	}
	return p.ID, p.Voice, p.Greeting
}

// Tags applies the current auto-tag rules to text.
func (s *Store) Tags(text string) []string {
	s.mu.RLock()
	tg := s.tagger
	s.mu.RUnlock()
	return tg.Tags(text)
}

func (s *Store) swap(next Settings) {
	tg := tagging.New(next.AutoTagRules)
	s.mu.Lock()
	s.current = next
	s.tagger = tg
	s.mu.Unlock()
}

func cloneSettings(in Settings) Settings {
	out := in
	out.Personas = append([]Persona(nil), in.Personas...)
	out.AutoTagRules = make([]tagging.Rule, len(in.AutoTagRules))
	for i, r := range in.AutoTagRules {
		out.AutoTagRules[i] = tagging.Rule{Tag: r.Tag, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// atomicWrite lands data via a temp file and rename so a crash mid-write
// never leaves a truncated settings file behind.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
