package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReport(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit_inspection.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseReportFile_Missing(t *testing.T) {
	report := ParseReportFile(filepath.Join(t.TempDir(), "missing.csv"), 0)

	assert.Equal(t, Report{}, report)
	for key, val := range report.Map() {
		assert.Empty(t, val, key)
	}
	assert.Len(t, report.Map(), 12)
}

func TestParseReportFile_MixedFormats(t *testing.T) {
	path := writeReport(t, "Serial Number,SN123\nKaori SN,V9\nModel: X100")

	m := ParseReportFile(path, 200).Map()
	assert.Equal(t, "SN123", m["serial_number"])
	assert.Equal(t, "V9", m["vendor_sn"])
	assert.Equal(t, "X100", m["model"])
	assert.Equal(t, "", m["firmware"])
}

func TestParseReport(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		maxLines int
		check    func(t *testing.T, r Report)
	}{
		{
			name: "Firmware from both parts",
			body: "System Software,1.0\nControl Firmware,2.0\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "1.0,2.0", r.Firmware)
			},
		},
		{
			name: "Firmware with only control part",
			body: "Control Firmware: 'v7'\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "v7", r.ControlFirmware)
				assert.Equal(t, "v7", r.Firmware)
			},
		},
		{
			name: "Whitespace form only keys the first word",
			body: "system software \"3.1\"\n",
			check: func(t *testing.T, r Report) {
				// whitespace split only takes the first word as key
				assert.Equal(t, "", r.SystemSoftware)
			},
		},
		{
			name: "Whitespace separated",
			body: "eth1   10.0.0.1\nEth2\t'10.0.0.2'\nlonely\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "10.0.0.1", r.Eth1)
				assert.Equal(t, "10.0.0.2", r.Eth2)
			},
		},
		{
			name: "Comma wins over colon",
			body: "Last Inspect: 2025-10-24, 13:18\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "13:18", r.LastInspect)
			},
		},
		{
			name: "First declared pattern wins",
			body: "Inspection Details serial number,ok\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "ok", r.InspectionDetails)
				assert.Equal(t, "", r.SerialNumber)
			},
		},
		{
			name: "Substring key match and later line overrides",
			body: "Unit Serial Number (OEM),A1\nserial number,A2\nVendor SN,B1\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "A2", r.SerialNumber)
				assert.Equal(t, "B1", r.VendorSN)
			},
		},
		{
			name:     "Lines beyond the limit are ignored",
			body:     "\n\nModel,M1\nPart Number,P1\n",
			maxLines: 3,
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "M1", r.Model)
				assert.Equal(t, "", r.PartNumber)
			},
		},
		{
			name: "CRLF and BOM",
			body: "\ufeffSerial Number,SN9\r\nKaori SN,K9\r\n",
			check: func(t *testing.T, r Report) {
				assert.Equal(t, "SN9", r.SerialNumber)
				assert.Equal(t, "K9", r.VendorSN)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, ParseReport(strings.NewReader(tc.body), tc.maxLines))
		})
	}
}

func TestParseReport_DefaultLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < DefaultReportMaxLines; i++ {
		fmt.Fprintf(&b, "filler,%d\n", i)
	}
	b.WriteString("Model,TooLate\n")

	r := ParseReport(strings.NewReader(b.String()), 0)
	assert.Equal(t, "", r.Model)
}

func TestReportFields(t *testing.T) {
	r := Report{SerialNumber: "S", VendorSN: "V"}
	fields := r.Fields()
	require.Len(t, fields, 10)
	assert.Equal(t, ReportField{"Serial Number", "serial_number", "S"}, fields[0])
	assert.Equal(t, "V", fields[1].Value)
}
