package common

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptySlug = errors.New("slug cannot be empty")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Leading phrases that carry no information about the underlying concept.
var questionPrefixes = []string{
	"how to", "what is", "explain", "describe", "why is", "tell me", "show me",
}

// Slugify derives a lowercase underscore-joined concept slug from a question,
// e.g. "How to convert fractions to decimals?" -> "convert_fractions_to_decimals".
// Falls back to slugifying fallback when the input produces nothing.
func Slugify(input, fallback string) (string, error) {
	slug := slugify(input)
	if slug == "" {
		slug = slugify(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			lower = strings.TrimSpace(strings.TrimPrefix(lower, prefix))
			break
		}
	}
	slug := nonSlugChars.ReplaceAllString(lower, "_")
	return strings.Trim(slug, "_")
}
