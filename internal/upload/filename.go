package upload

import (
	"path"
	"strings"

	"equipment-tracker-backend/internal/apperr"
)

// AllowedExtensions lists the file extensions accepted for upload.
var AllowedExtensions = map[string]bool{
	"csv":  true,
	"xlsx": true,
	"txt":  true,
	"log":  true,
}

// SanitizeFilename strips directory components and keeps only ASCII letters,
// digits, '-', '_' and '.'. Whitespace becomes '_'. Leading and trailing dots
// and underscores are removed, so the result can never address a parent directory.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		case r == '_':
			b.WriteRune(r)
		default:
			continue
		}
		lastUnderscore = r == '_'
	}
	return strings.Trim(b.String(), "._")
}

// ValidateExt returns the lowercased extension of filename, or a validation
// error when it has none or it is not in AllowedExtensions.
func ValidateExt(filename string) (string, error) {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "", apperr.Validation("file has no extension")
	}
	ext := strings.ToLower(filename[i+1:])
	if !AllowedExtensions[ext] {
		return "", apperr.Validation("only CSV / XLSX / TXT / LOG files can be uploaded")
	}
	return ext, nil
}
