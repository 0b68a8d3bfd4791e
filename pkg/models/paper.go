package models

import (
	"fmt"
	"strconv"
	"strings"
)

// StyleKind identifies which base fill is drawn on every output
type StyleKind string

const (
	StyleNone   StyleKind = "none"
	StyleColor  StyleKind = "color"
	StyleImage  StyleKind = "image"
	StyleTiled  StyleKind = "tiled"
	StyleRandom StyleKind = "dir"
)

// StyleSpec is the configured base style. Only the field matching Kind is meaningful.
type StyleSpec struct {
	Kind  StyleKind `json:"kind"`
	Color uint32    `json:"color,omitempty"`
	Path  string    `json:"path,omitempty"`
}

// SolidColor returns a color style
func SolidColor(argb uint32) StyleSpec {
	return StyleSpec{Kind: StyleColor, Color: argb}
}

// Image returns a stretched image style
func Image(path string) StyleSpec {
	return StyleSpec{Kind: StyleImage, Path: path}
}

// TiledImage returns a tiled image style
func TiledImage(path string) StyleSpec {
	return StyleSpec{Kind: StyleTiled, Path: path}
}

// RandomFromDirectory returns a style picking a random image below path
func RandomFromDirectory(path string) StyleSpec {
	return StyleSpec{Kind: StyleRandom, Path: path}
}

// IsSet reports whether a base style was selected
func (s StyleSpec) IsSet() bool {
	return s.Kind != "" && s.Kind != StyleNone
}

func (s StyleSpec) String() string {
	switch s.Kind {
	case StyleColor:
		return fmt.Sprintf("color(#%08X)", s.Color)
	case StyleImage, StyleTiled, StyleRandom:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Path)
	default:
		return string(StyleNone)
	}
}

// BorderSpec describes the frame drawn on top of the base style
type BorderSpec struct {
	Gap   uint32 `json:"gap"`
	Color uint32 `json:"color"`
}

// WallpaperConfig is everything a session needs to draw an output.
// It is built once from the command line and never mutated afterwards.
type WallpaperConfig struct {
	Style        StyleSpec   `json:"style"`
	Border       *BorderSpec `json:"border,omitempty"`
	OutputFilter string      `json:"output_filter,omitempty"`
}

// Clone returns a deep copy so every session owns its own value
func (c *WallpaperConfig) Clone() *WallpaperConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Border != nil {
		border := *c.Border
		clone.Border = &border
	}
	return &clone
}

// Renderable reports whether there is anything to draw at all.
// A border without a base style still renders.
func (c *WallpaperConfig) Renderable() bool {
	return c != nil && (c.Style.IsSet() || c.Border != nil)
}

// ExclusiveZone is the layer-surface exclusive zone for this configuration
func (c *WallpaperConfig) ExclusiveZone() int32 {
	if c != nil && c.Border != nil {
		return 1
	}
	return -1
}

// ParseColor parses an #AARRGGBB (or AARRGGBB) hexadecimal color
func ParseColor(value string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if hex == "" {
		return 0, fmt.Errorf("empty color")
	}
	color, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", value, err)
	}
	return uint32(color), nil
}

// OutputDescriptor holds what the compositor told us about one output
type OutputDescriptor struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Scale       int    `json:"scale"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Configured  bool   `json:"configured"`
}

// Label returns the most human friendly identifier available
func (o OutputDescriptor) Label() string {
	switch {
	case o.Name != "":
		return o.Name
	case o.Make != "" || o.Model != "":
		return strings.TrimSpace(o.Make + " " + o.Model)
	default:
		return fmt.Sprintf("output-%d", o.ID)
	}
}

// Matches reports whether the output is selected by filter.
// An empty filter selects every output.
func (o OutputDescriptor) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	for _, field := range []string{o.Name, o.Description, o.Make, o.Model} {
		if field != "" && strings.Contains(field, filter) {
			return true
		}
	}
	return false
}
