package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"promptforge/internal/types"
)

//go:embed profiles/*.yaml
var embeddedProfiles embed.FS

// LoadEmbedded loads the default tool profile catalog baked into the binary.
// The engine can therefore run with zero external configuration.
func LoadEmbedded() (*Registry, error) {
	entries, err := fs.ReadDir(embeddedProfiles, "profiles")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded profiles: %w", err)
	}

	// Deterministic declaration order across builds.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var profiles []types.ToolProfile
	for _, name := range names {
		data, err := embeddedProfiles.ReadFile("profiles/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded profile %s: %w", name, err)
		}
		p, err := parseProfile(data)
		if err != nil {
			return nil, fmt.Errorf("embedded profile %s: %w", name, err)
		}
		profiles = append(profiles, p)
	}

	return NewFromProfiles(profiles)
}
