package parse

import (
	"regexp"
	"strings"

	"equipment-tracker-backend/internal/apperr"
)

var (
	siteRe  = regexp.MustCompile(`^([^()]+)\(([^()]+)\)$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeSpace trims s and collapses every whitespace run into a single space.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ParseSite splits a raw site identifier of the form "Country(Location)" into its parts.
//
// Input without the parenthesised form is returned whole as both country and
// location. Callers should not treat location as meaningful in that case.
func ParseSite(raw string) (country, location string, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", apperr.Validation("country/case scene must not be empty")
	}

	if m := siteRe.FindStringSubmatch(s); m != nil {
		country = NormalizeSpace(m[1])
		location = NormalizeSpace(m[2])
		if country != "" && location != "" {
			return country, location, nil
		}
	}

	// TODO: confirm with facilities whether the unparenthesised form should be rejected instead.
	s = NormalizeSpace(s)
	return s, s, nil
}
