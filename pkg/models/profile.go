package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is the optional paper.yaml file holding default wallpaper settings.
// Command line flags are applied on top of it.
type Profile struct {
	Style  string         `yaml:"style" json:"style"`
	Color  string         `yaml:"color" json:"color"`
	Path   string         `yaml:"path" json:"path"`
	Output string         `yaml:"output" json:"output"`
	Border *ProfileBorder `yaml:"border" json:"border,omitempty"`

	// Runtime fields (not in profile)
	SourcePath string `yaml:"-" json:"sourcePath"`
}

// ProfileBorder is the border section of a profile
type ProfileBorder struct {
	Gap   uint32 `yaml:"gap" json:"gap"`
	Color string `yaml:"color" json:"color"`
}

// LoadProfile loads a profile file. The returned error wraps os.ErrNotExist
// when the file is absent so callers can treat that case as "no profile".
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile file: %w", err)
	}
	profile.SourcePath = path

	if _, err := profile.StyleSpec(); err != nil {
		return nil, err
	}
	if profile.Border != nil {
		if _, err := ParseColor(profile.Border.Color); err != nil {
			return nil, fmt.Errorf("invalid border in %s: %w", path, err)
		}
	}

	return &profile, nil
}

// StyleSpec converts the profile's style section
func (p *Profile) StyleSpec() (StyleSpec, error) {
	switch StyleKind(p.Style) {
	case "", StyleNone:
		return StyleSpec{Kind: StyleNone}, nil
	case StyleColor:
		color, err := ParseColor(p.Color)
		if err != nil {
			return StyleSpec{}, fmt.Errorf("invalid color style in %s: %w", p.SourcePath, err)
		}
		return SolidColor(color), nil
	case StyleImage, StyleTiled, StyleRandom:
		if p.Path == "" {
			return StyleSpec{}, fmt.Errorf("style %q in %s requires a path", p.Style, p.SourcePath)
		}
		return StyleSpec{Kind: StyleKind(p.Style), Path: p.Path}, nil
	default:
		return StyleSpec{}, fmt.Errorf("unknown style %q in %s", p.Style, p.SourcePath)
	}
}

// WallpaperConfig builds the base configuration described by the profile
func (p *Profile) WallpaperConfig() (*WallpaperConfig, error) {
	style, err := p.StyleSpec()
	if err != nil {
		return nil, err
	}

	cfg := &WallpaperConfig{
		Style:        style,
		OutputFilter: p.Output,
	}
	if p.Border != nil {
		color, err := ParseColor(p.Border.Color)
		if err != nil {
			return nil, fmt.Errorf("invalid border in %s: %w", p.SourcePath, err)
		}
		cfg.Border = &BorderSpec{Gap: p.Border.Gap, Color: color}
	}
	return cfg, nil
}
