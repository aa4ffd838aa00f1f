package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsset_Candidates(t *testing.T) {
	tests := []struct {
		name  string
		asset Asset
		want  []string
	}{
		{
			name:  "primary only",
			asset: Asset{Name: "a.mp3", URL: "https://a.example/a.mp3"},
			want:  []string{"https://a.example/a.mp3"},
		},
		{
			name: "primary then backups in order",
			asset: Asset{
				Name:    "a.mp3",
				URL:     "https://a.example/a.mp3",
				Backups: []string{"https://b.example/a.mp3", "https://c.example/a.mp3"},
			},
			want: []string{"https://a.example/a.mp3", "https://b.example/a.mp3", "https://c.example/a.mp3"},
		},
		{
			name: "drops blanks and repeats",
			asset: Asset{
				Name:    "a.mp3",
				URL:     "https://a.example/a.mp3",
				Backups: []string{"", "https://a.example/a.mp3", " https://b.example/a.mp3 ", "https://b.example/a.mp3"},
			},
			want: []string{"https://a.example/a.mp3", "https://b.example/a.mp3"},
		},
		{
			name:  "missing primary falls through to backups",
			asset: Asset{Name: "a.mp3", Backups: []string{"https://b.example/a.mp3"}},
			want:  []string{"https://b.example/a.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.asset.Candidates())
		})
	}
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest()
	require.NoError(t, m.Validate())

	assert.Equal(t, DefaultAudioDir, m.Dir)
	names := make([]string, 0, len(m.Assets))
	for _, a := range m.Assets {
		names = append(names, a.Name)
		assert.Len(t, a.Candidates(), 2, "asset %s should have a backup", a.Name)
	}
	assert.Equal(t, []string{
		"bgm_ambient.mp3",
		"dao_enter.mp3",
		"fa_enter.mp3",
		"qi_enter.mp3",
		"qi_tool_hover.mp3",
		"qi_card_flip.mp3",
	}, names)
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		wantErr  bool
	}{
		{"valid", Manifest{Assets: []Asset{{Name: "a.mp3", URL: "https://x.example/a.mp3"}}}, false},
		{"no assets", Manifest{}, true},
		{"empty name", Manifest{Assets: []Asset{{URL: "https://x.example/a.mp3"}}}, true},
		{"path in name", Manifest{Assets: []Asset{{Name: "../a.mp3", URL: "https://x.example/a.mp3"}}}, true},
		{"dot dot name", Manifest{Assets: []Asset{{Name: "..", URL: "https://x.example/a.mp3"}}}, true},
		{"duplicate name", Manifest{Assets: []Asset{
			{Name: "a.mp3", URL: "https://x.example/a.mp3"},
			{Name: "a.mp3", URL: "https://y.example/a.mp3"},
		}}, true},
		{"no urls", Manifest{Assets: []Asset{{Name: "a.mp3"}}}, true},
		{"ftp scheme", Manifest{Assets: []Asset{{Name: "a.mp3", URL: "ftp://x.example/a.mp3"}}}, true},
		{"bad backup", Manifest{Assets: []Asset{{Name: "a.mp3", URL: "https://x.example/a.mp3", Backups: []string{"not a url"}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidManifest)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.yaml")
	content := `
assets:
  - name: click.mp3
    url: https://a.example/click.mp3
    backups:
      - https://b.example/click.mp3
  - name: bgm.mp3
    url: https://a.example/bgm.mp3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, DefaultAudioDir, m.Dir)
	require.Len(t, m.Assets, 2)
	assert.Equal(t, "click.mp3", m.Assets[0].Name)
	assert.Equal(t, []string{"https://a.example/click.mp3", "https://b.example/click.mp3"}, m.Assets[0].Candidates())
}

func TestLoadManifest_Errors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assets: [::"), 0644))
	_, err = LoadManifest(path)
	assert.Error(t, err)
}

func TestManifest_Select(t *testing.T) {
	m := DefaultManifest()

	all, err := m.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all.Assets, len(m.Assets))

	sub, err := m.Select([]string{"qi_card_flip.mp3", "dao_enter.mp3"})
	require.NoError(t, err)
	require.Len(t, sub.Assets, 2)
	// manifest order, not argument order
	assert.Equal(t, "dao_enter.mp3", sub.Assets[0].Name)
	assert.Equal(t, "qi_card_flip.mp3", sub.Assets[1].Name)
	assert.Equal(t, m.Dir, sub.Dir)

	_, err = m.Select([]string{"nope.mp3"})
	assert.Error(t, err)
}
