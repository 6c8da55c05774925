package models

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPostURL is returned for references that are not a post URL.
var ErrInvalidPostURL = errors.New("invalid Instagram post URL")

// postURLPattern matches /p/, /reel/ and /tv/ links and captures the shortcode.
var postURLPattern = regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

// ParsePostURL returns the shortcode of an Instagram post URL.
func ParsePostURL(ref string) (string, error) {
	m := postURLPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return "", ErrInvalidPostURL
	}
	return m[1], nil
}
