package upload

import "strings"

// Category is the kind of an uploaded file.
type Category string

const (
	CategoryInspection Category = "inspection"
	CategoryLogs       Category = "logs"
	CategoryFeedback   Category = "feedback"
	CategoryOther      Category = "other"
)

// ParseCategory returns the category named by s (case-insensitive) and whether it is valid.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryInspection, CategoryLogs, CategoryFeedback, CategoryOther:
		return c, true
	default:
		return "", false
	}
}

// Classify decides the category of an upload. A valid explicit hint always wins;
// otherwise the lowercased filename is inspected. Feedback is never inferred.
func Classify(filename, hint string) Category {
	if c, ok := ParseCategory(hint); ok {
		return c
	}

	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "inspection"):
		return CategoryInspection
	case strings.HasSuffix(lower, ".log"), strings.Contains(lower, "log"):
		return CategoryLogs
	default:
		return CategoryOther
	}
}

// Dir is the storage sub-directory for the category.
func (c Category) Dir() string {
	switch c {
	case CategoryInspection:
		return "Inspection"
	case CategoryLogs:
		return "Logs"
	case CategoryFeedback:
		return "Feedback"
	default:
		return "Other"
	}
}
