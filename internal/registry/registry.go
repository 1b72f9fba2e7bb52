// Package registry is the static catalog of target-tool profiles. Profiles
// are loaded once at startup from YAML (embedded defaults or a profiles
// directory) and are read-only afterwards.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// Registry holds the loaded tool profiles. Immutable after construction.
type Registry struct {
	profiles map[string]*types.ToolProfile
	order    []string // declaration order of tool ids
}

// NewFromProfiles builds a registry from already-constructed profiles.
// Used by tests and embedded-catalog loading.
func NewFromProfiles(profiles []types.ToolProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*types.ToolProfile)}
	for i := range profiles {
		p := profiles[i]
		if err := validateProfile(&p); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.ID]; dup {
			return nil, fmt.Errorf("duplicate tool profile id %q", p.ID)
		}
		r.profiles[p.ID] = &p
		r.order = append(r.order, p.ID)
	}
	if len(r.order) == 0 {
		return nil, fmt.Errorf("no tool profiles loaded")
	}
	return r, nil
}

// LoadDirectory loads every YAML profile file from dir. A malformed profile
// is a fatal load error, not a skipped file: a half-loaded catalog would
// silently change strategy selection.
func LoadDirectory(dir string) (*Registry, error) {
	timer := logging.StartTimer(logging.CategoryRegistry, "LoadDirectory")
	defer timer.Stop()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	var profiles []types.ToolProfile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", entry.Name(), err)
		}
		p, err := parseProfile(data)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", entry.Name(), err)
		}
		profiles = append(profiles, p)
	}

	logging.Registry("Loaded %d tool profiles from %s", len(profiles), dir)
	return NewFromProfiles(profiles)
}

func parseProfile(data []byte) (types.ToolProfile, error) {
	var p types.ToolProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("invalid YAML: %w", err)
	}
	return p, nil
}

func validateProfile(p *types.ToolProfile) error {
	if p.ID == "" {
		return fmt.Errorf("tool profile missing id")
	}
	if p.DisplayName == "" {
		return fmt.Errorf("tool profile %q missing display_name", p.ID)
	}
	if len(p.Strategies) == 0 {
		return fmt.Errorf("tool profile %q has no strategies", p.ID)
	}
	for i, s := range p.Strategies {
		if s.Template == "" {
			return fmt.Errorf("tool profile %q strategy %d has an empty template", p.ID, i)
		}
		if s.Effectiveness < 0 || s.Effectiveness > 1 {
			return fmt.Errorf("tool profile %q strategy %d effectiveness %v out of [0,1]", p.ID, i, s.Effectiveness)
		}
	}
	return nil
}

// GetProfile returns the profile for toolID, or UnsupportedToolError.
// The registry never substitutes a default for an unknown tool.
func (r *Registry) GetProfile(toolID string) (*types.ToolProfile, error) {
	p, ok := r.profiles[toolID]
	if !ok {
		logging.RegistryDebug("Unknown tool requested: %q", toolID)
		return nil, &types.UnsupportedToolError{ToolID: toolID}
	}
	return p, nil
}

// ListTools returns tool ids in declaration order.
func (r *Registry) ListTools() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// StrategiesFor returns the profile's strategies applicable to stage,
// ordered by descending effectiveness with ties broken by declaration order.
// An empty strategy stage list means the strategy applies to every stage.
func (r *Registry) StrategiesFor(toolID string, stage types.Stage) ([]types.PromptingStrategy, error) {
	p, err := r.GetProfile(toolID)
	if err != nil {
		return nil, err
	}

	var selected []types.PromptingStrategy
	for _, s := range p.Strategies {
		if strategyAppliesTo(s, stage) {
			selected = append(selected, s)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Effectiveness > selected[j].Effectiveness
	})
	return selected, nil
}

func strategyAppliesTo(s types.PromptingStrategy, stage types.Stage) bool {
	if len(s.Stages) == 0 {
		return true
	}
	for _, st := range s.Stages {
		if st == stage {
			return true
		}
	}
	return false
}
