// Package audio checks that a downloaded payload really is audio.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches mimetype's default read limit.
const sniffLen = 3072

// ErrNotAudio is returned when a payload sniffs as something other than audio.
var ErrNotAudio = errors.New("payload is not audio")

// Sniff detects the MIME type of r from its first bytes. The returned reader
// yields the complete stream, header included.
func Sniff(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, nil, fmt.Errorf("failed to read payload header: %w", err)
	}
	head := buf[:n]
	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// IsAudio reports whether m, or one of its parents, is an audio type.
func IsAudio(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		mt := m.String()
		if strings.HasPrefix(mt, "audio/") || mt == "application/ogg" {
			return true
		}
	}
	return false
}

// Verify sniffs r and fails with ErrNotAudio unless it is audio.
func Verify(r io.Reader) (string, io.Reader, error) {
	m, rest, err := Sniff(r)
	if err != nil {
		return "", nil, err
	}
	if !IsAudio(m) {
		return m.String(), nil, fmt.Errorf("%w: detected %s", ErrNotAudio, m.String())
	}
	return m.String(), rest, nil
}
