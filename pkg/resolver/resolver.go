// Package resolver finds the audio file behind an HTML landing page.
//
// Asset hosts sometimes answer a direct link with a preview page instead of
// the file itself. The page nearly always embeds the file in an <audio>
// element or advertises it through Open Graph tags.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoAudioLink means the page parsed but referenced no audio file.
var ErrNoAudioLink = errors.New("no audio link found on page")

var audioExtensions = map[string]bool{
	".mp3":  true,
	".ogg":  true,
	".oga":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".opus": true,
	".webm": true,
}

// IsHTML reports whether a Content-Type header names an HTML document.
func IsHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// Resolve parses an HTML document fetched from baseURL and returns the
// absolute URL of the first audio file it references.
func Resolve(baseURL string, body io.Reader) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, candidate := range candidates(doc) {
		if resolved, ok := absolute(base, candidate); ok {
			return resolved, nil
		}
	}
	return "", ErrNoAudioLink
}

// candidates lists raw references in priority order.
func candidates(doc *goquery.Document) []string {
	var out []string
	add := func(v string, ok bool) {
		if v = strings.TrimSpace(v); ok && v != "" {
			out = append(out, v)
		}
	}

	doc.Find("audio[src]").Each(func(_ int, s *goquery.Selection) {
		add(s.Attr("src"))
	})
	doc.Find("audio source[src]").Each(func(_ int, s *goquery.Selection) {
		add(s.Attr("src"))
	})
	doc.Find(`meta[property="og:audio"], meta[property="og:audio:url"], meta[property="og:audio:secure_url"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.Attr("content"))
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if ok && hasAudioExtension(href) {
			add(href, true)
		}
	})
	return out
}

func hasAudioExtension(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return audioExtensions[strings.ToLower(path.Ext(u.Path))]
}

func absolute(base *url.URL, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return resolved.String(), true
}
