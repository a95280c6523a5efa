// Package settings holds the operator-tunable dashboard configuration:
// the persona roster for the voice agent and the auto-tag rules. Settings
// persist to a single yaml file so operators can edit them out-of-band.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"baitboard/internal/tagging"
)

// Persona is one answering character for the voice agent.
type Persona struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Voice        string `json:"voice" yaml:"voice"`
	Greeting     string `json:"greeting" yaml:"greeting"`
	SystemPrompt string `json:"systemPrompt" yaml:"system_prompt"`
}

// Settings is the full operator-editable document.
type Settings struct {
	ActivePersona string         `json:"activePersona" yaml:"active_persona"`
	Personas      []Persona      `json:"personas" yaml:"personas"`
	AutoTagRules  []tagging.Rule `json:"autoTagRules" yaml:"auto_tag_rules"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		ActivePersona: "grandma",
		Personas: []Persona{
			{
				ID:       "grandma",
				Name:     "Edna",
				Voice:    "Polly.Kimberly",
				Greeting: "Hello? Who is this, dear?",
				SystemPrompt: "You are Edna, a sweet but hopelessly confused grandmother. " +
					"Keep the caller on the line as long as possible. Never share real information.",
			},
			{
				ID:       "businessman",
				Name:     "Gerald",
				Voice:    "Polly.Matthew",
				Greeting: "Gerald speaking, make it quick.",
				SystemPrompt: "You are Gerald, an impatient executive who keeps getting interrupted " +
					"by meetings. Stall endlessly. Never share real information.",
			},
		},
		AutoTagRules: tagging.DefaultRules(),
	}
}

// Validate checks internal consistency before persisting.
func (s Settings) Validate() error {
	var errs []error
	if len(s.Personas) == 0 {
		errs = append(errs, errors.New("at least one persona is required"))
	}
	seen := make(map[string]struct{}, len(s.Personas))
	for i, p := range s.Personas {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("persona[%d]: id is required", i))
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("persona %q: duplicate id", id))
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Errorf("persona %q: name is required", id))
		}
	}
	if s.ActivePersona != "" {
		if _, ok := seen[s.ActivePersona]; !ok {
			errs = append(errs, fmt.Errorf("active persona %q is not in the roster", s.ActivePersona))
		}
	}
	for i, r := range s.AutoTagRules {
		if strings.TrimSpace(r.Tag) == "" {
			errs = append(errs, fmt.Errorf("auto-tag rule[%d]: tag is required", i))
		}
	}
	return errors.Join(errs...)
}

// Active returns the persona referenced by ActivePersona, falling back to the
// first persona when the reference is empty or stale.
func (s Settings) Active() (Persona, bool) {
	for _, p := range s.Personas {
		if p.ID == s.ActivePersona {
			return p, true
		}
	}
	if len(s.Personas) > 0 {
		return s.Personas[0], true
	}
	return Persona{}, false
}
