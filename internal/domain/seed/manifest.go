package seed

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Dataset is a full seed file
type Dataset struct {
	Users   []UserSpec   `yaml:"users" toml:"users"`
	Follows []FollowSpec `yaml:"follows" toml:"follows"`
	Apps    []AppSpec    `yaml:"apps" toml:"apps"`
}

// UserSpec describes a seeded user
type UserSpec struct {
	ID          string `yaml:"id" toml:"id"`
	Username    string `yaml:"username" toml:"username"`
	DisplayName string `yaml:"displayName" toml:"displayName"`
	Bio         string `yaml:"bio" toml:"bio"`
	AvatarURL   string `yaml:"avatarUrl" toml:"avatarUrl"`
	JoinedAt    string `yaml:"joinedAt" toml:"joinedAt"`
}

// FollowSpec is one follow edge
type FollowSpec struct {
	Follower string `yaml:"follower" toml:"follower"`
	Followee string `yaml:"followee" toml:"followee"`
}

// AppSpec describes a seeded app. Code is inline (HTML, CSS, JS) or read
// from files relative to the manifest.
type AppSpec struct {
	ID          string   `yaml:"id" toml:"id"`
	Owner       string   `yaml:"owner" toml:"owner"`
	Title       string   `yaml:"title" toml:"title"`
	Description string   `yaml:"description" toml:"description"`
	Prompt      string   `yaml:"prompt" toml:"prompt"`
	HTML        string   `yaml:"html" toml:"html"`
	CSS         string   `yaml:"css" toml:"css"`
	JS          string   `yaml:"js" toml:"js"`
	HTMLFile    string   `yaml:"htmlFile" toml:"htmlFile"`
	CSSFile     string   `yaml:"cssFile" toml:"cssFile"`
	JSFile      string   `yaml:"jsFile" toml:"jsFile"`
	Likes       int      `yaml:"likes" toml:"likes"`
	Comments    int      `yaml:"comments" toml:"comments"`
	LikedBy     []string `yaml:"likedBy" toml:"likedBy"`
	SafetyScore *float64 `yaml:"safetyScore" toml:"safetyScore"`
	Published   *bool    `yaml:"published" toml:"published"`
	CreatedAt   string   `yaml:"createdAt" toml:"createdAt"`
}

// Format is a manifest encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the decoder from a file name
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest format: %s", filepath.Ext(path))
	}
}

func decode(data []byte, format Format, v any) error {
	switch format {
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	case FormatTOML:
		return toml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported manifest format: %s", format)
	}
}

// ParseDataset decodes a full seed file
func ParseDataset(data []byte, format Format) (*Dataset, error) {
	var ds Dataset
	if err := decode(data, format, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return &ds, nil
}

// ParseApp decodes a single-app manifest
func ParseApp(data []byte, format Format) (*AppSpec, error) {
	var spec AppSpec
	if err := decode(data, format, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse app manifest: %w", err)
	}
	return &spec, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates. Empty means fallback.
func parseTime(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t.UTC(), nil
}
