package models

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAudioDir is where assets land when the manifest names no directory.
const DefaultAudioDir = "assets/audio"

// ErrInvalidManifest wraps every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// Asset is a single named audio file and the URLs it can be fetched from.
type Asset struct {
	Name    string   `yaml:"name" json:"name"`
	URL     string   `yaml:"url" json:"url"`
	Backups []string `yaml:"backups,omitempty" json:"backups,omitempty"`
}

// Candidates returns the primary URL followed by the backups, in order,
// with blanks and repeats dropped.
func (a Asset) Candidates() []string {
	seen := make(map[string]bool, len(a.Backups)+1)
	out := make([]string, 0, len(a.Backups)+1)
	for _, u := range append([]string{a.URL}, a.Backups...) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Manifest is the ordered list of assets to keep on disk.
type Manifest struct {
	Dir    string  `yaml:"dir" json:"dir"`
	Assets []Asset `yaml:"assets" json:"assets"`
}

// DefaultManifest returns the built-in asset table.
func DefaultManifest() *Manifest {
	const notification = "https://notificationsounds.com/storage/sounds/notification-sounds-882.mp3"
	return &Manifest{
		Dir: DefaultAudioDir,
		Assets: []Asset{
			{
				Name:    "bgm_ambient.mp3",
				URL:     "https://assets.mixkit.co/music/preview/mixkit-driving-ambient-32.mp3",
				Backups: []string{"https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3"},
			},
			{
				Name:    "dao_enter.mp3",
				URL:     "https://assets.mixkit.co/sfx/preview/mixkit-bell-notification-933.mp3",
				Backups: []string{notification},
			},
			{
				Name:    "fa_enter.mp3",
				URL:     "https://assets.mixkit.co/sfx/preview/mixkit-page-turn-1104.mp3",
				Backups: []string{notification},
			},
			{
				Name:    "qi_enter.mp3",
				URL:     "https://assets.mixkit.co/sfx/preview/mixkit-sci-fi-echo-blip-919.mp3",
				Backups: []string{notification},
			},
			{
				Name:    "qi_tool_hover.mp3",
				URL:     "https://assets.mixkit.co/sfx/preview/mixkit-click-button-1117.mp3",
				Backups: []string{notification},
			},
			{
				Name:    "qi_card_flip.mp3",
				URL:     "https://assets.mixkit.co/sfx/preview/mixkit-card-flip-914.mp3",
				Backups: []string{notification},
			},
		},
	}
}

// LoadManifest reads a YAML manifest from disk. The result is not validated.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if strings.TrimSpace(m.Dir) == "" {
		m.Dir = DefaultAudioDir
	}
	return &m, nil
}

// Validate checks asset names and URLs.
func (m *Manifest) Validate() error {
	if len(m.Assets) == 0 {
		return fmt.Errorf("%w: no assets", ErrInvalidManifest)
	}

	names := make(map[string]bool, len(m.Assets))
	for i, a := range m.Assets {
		if err := validateName(a.Name); err != nil {
			return fmt.Errorf("%w: asset %d: %v", ErrInvalidManifest, i, err)
		}
		if names[a.Name] {
			return fmt.Errorf("%w: duplicate asset name %q", ErrInvalidManifest, a.Name)
		}
		names[a.Name] = true

		candidates := a.Candidates()
		if len(candidates) == 0 {
			return fmt.Errorf("%w: asset %q has no URLs", ErrInvalidManifest, a.Name)
		}
		for _, raw := range candidates {
			if err := validateURL(raw); err != nil {
				return fmt.Errorf("%w: asset %q: %v", ErrInvalidManifest, a.Name, err)
			}
		}
	}
	return nil
}

// Lookup finds an asset by file name.
func (m *Manifest) Lookup(name string) (Asset, bool) {
	for _, a := range m.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Select returns a copy of the manifest restricted to the named assets,
// keeping manifest order. An empty list selects everything.
func (m *Manifest) Select(names []string) (*Manifest, error) {
	out := &Manifest{Dir: m.Dir}
	if len(names) == 0 {
		out.Assets = append(out.Assets, m.Assets...)
		return out, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := m.Lookup(n); !ok {
			return nil, fmt.Errorf("unknown asset %q", n)
		}
		want[n] = true
	}
	for _, a := range m.Assets {
		if want[a.Name] {
			out.Assets = append(out.Assets, a)
		}
	}
	return out, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("empty name")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("name %q must be a plain file name", name)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
