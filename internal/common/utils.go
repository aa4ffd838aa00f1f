package common

import (
	"regexp"
	"strings"

	"github.com/dtnitsch/audiofetch/models"
)

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL performs basic cleanup on URLs pasted into a manifest.
// Removes whitespace, trailing punctuation and markdown link wrappers.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	for _, char := range []string{",", ")", "}", "]", "\"", "'", ">", ";"} {
		cleaned = strings.TrimSuffix(cleaned, char)
	}
	for _, char := range []string{"(", "[", "<", "\"", "'"} {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// SanitizeManifest cleans every URL in m in place and reports how many
// were changed.
func SanitizeManifest(m *models.Manifest) int {
	changed := 0
	clean := func(u string) string {
		c := SanitizeURL(u)
		if c != u {
			changed++
		}
		return c
	}

	for i := range m.Assets {
		a := &m.Assets[i]
		a.Name = strings.TrimSpace(a.Name)
		a.URL = clean(a.URL)
		for j := range a.Backups {
			a.Backups[j] = clean(a.Backups[j])
		}
	}
	return changed
}

// SplitList splits a comma-separated flag value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
