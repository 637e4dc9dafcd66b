package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"equipment-tracker-backend/internal/apperr"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		raw      string
		expected string
	}{
		{"report.csv", "report.csv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\ops\unit inspection.csv`, "unit_inspection.csv"},
		{"my  file (1).txt", "my_file_1.txt"},
		{"..", ""},
		{".hidden.log", "hidden.log"},
		{"設備_inspection.csv", "inspection.csv"},
		{"", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.raw))
		})
	}
}

func TestValidateExt(t *testing.T) {
	ext, err := ValidateExt("Report.CSV")
	assert.NoError(t, err)
	assert.Equal(t, "csv", ext)

	for _, name := range []string{"noext", "image.png", "archive.tar.gz"} {
		_, err := ValidateExt(name)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), name)
	}
}
