package parse

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// DefaultReportMaxLines bounds how much of an inspection file is scanned.
const DefaultReportMaxLines = 200

// Report holds the fields extracted from a vendor inspection report.
// Fields absent from the file are empty strings.
type Report struct {
	SerialNumber      string `json:"serial_number"`
	VendorSN          string `json:"vendor_sn"`
	Model             string `json:"model"`
	PartNumber        string `json:"part_number"`
	LastInspect       string `json:"last_inspect"`
	Eth1              string `json:"eth1"`
	Eth2              string `json:"eth2"`
	Eth3              string `json:"eth3"`
	SystemSoftware    string `json:"system_software"`
	ControlFirmware   string `json:"control_firmware"`
	InspectionDetails string `json:"inspection_details"`
	Firmware          string `json:"firmware"`
}

// reportField binds a key substring to a Report field. Order matters: the
// first pattern contained in a key wins.
type reportField struct {
	pattern string
	name    string
	target  func(r *Report) *string
}

var reportFields = []reportField{
	{"inspection details", "inspection_details", func(r *Report) *string { return &r.InspectionDetails }},
	{"last inspect", "last_inspect", func(r *Report) *string { return &r.LastInspect }},
	{"serial number", "serial_number", func(r *Report) *string { return &r.SerialNumber }},
	{"vendor sn", "vendor_sn", func(r *Report) *string { return &r.VendorSN }},
	{"kaori sn", "vendor_sn", func(r *Report) *string { return &r.VendorSN }},
	{"model", "model", func(r *Report) *string { return &r.Model }},
	{"part number", "part_number", func(r *Report) *string { return &r.PartNumber }},
	{"eth1", "eth1", func(r *Report) *string { return &r.Eth1 }},
	{"eth2", "eth2", func(r *Report) *string { return &r.Eth2 }},
	{"eth3", "eth3", func(r *Report) *string { return &r.Eth3 }},
	{"system software", "system_software", func(r *Report) *string { return &r.SystemSoftware }},
	{"control firmware", "control_firmware", func(r *Report) *string { return &r.ControlFirmware }},
}

// ParseReportFile reads at most maxLines lines from path and extracts the known
// report fields. A missing or unreadable file yields an all-empty Report.
// maxLines <= 0 selects DefaultReportMaxLines.
func ParseReportFile(path string, maxLines int) Report {
	f, err := os.Open(path)
	if err != nil {
		return Report{}
	}
	defer f.Close()
	return ParseReport(f, maxLines)
}

// ParseReport extracts the known report fields from r. Each line is read as
// "key,value", "key: value" or "key value" (checked in that order), and the
// lowercased key is matched by substring against the known field patterns.
func ParseReport(r io.Reader, maxLines int) Report {
	if maxLines <= 0 {
		maxLines = DefaultReportMaxLines
	}

	var report Report
	reader := bufio.NewReader(r)
	for lineNo := 1; lineNo <= maxLines; lineNo++ {
		raw, err := reader.ReadString('\n')
		if raw == "" && err != nil {
			break
		}
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		if key, val, ok := splitReportLine(raw); ok {
			report.assign(key, val)
		}

		if err != nil {
			// io.EOF after a final unterminated line, or a read failure: keep what was parsed.
			break
		}
	}

	report.Firmware = strings.Trim(report.SystemSoftware+","+report.ControlFirmware, ",")
	return report
}

func splitReportLine(raw string) (key, val string, ok bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return "", "", false
	}

	switch {
	case strings.Contains(line, ","):
		k, v, _ := strings.Cut(line, ",")
		key, val = k, strings.TrimSpace(v)
	case strings.Contains(line, ":"):
		k, v, _ := strings.Cut(line, ":")
		key, val = k, strings.Trim(strings.TrimSpace(v), `'" `)
	default:
		parts := strings.Fields(line)
		if len(parts) < 2 {
			return "", "", false
		}
		key = parts[0]
		rest := strings.TrimSpace(line[len(parts[0]):])
		val = strings.Trim(rest, `'" `)
	}

	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", false
	}
	return key, val, true
}

func (r *Report) assign(key, val string) {
	for _, f := range reportFields {
		if strings.Contains(key, f.pattern) {
			*f.target(r) = val
			return
		}
	}
}

// Map returns the report as a field-name keyed map, including the derived firmware.
func (r Report) Map() map[string]string {
	m := make(map[string]string, len(reportFields)+1)
	for _, f := range reportFields {
		m[f.name] = *f.target(&r)
	}
	m["firmware"] = r.Firmware
	return m
}

// ReportField is a labelled report value for display.
type ReportField struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields returns the displayable report fields in presentation order.
func (r Report) Fields() []ReportField {
	return []ReportField{
		{"Serial Number", "serial_number", r.SerialNumber},
		{"Vendor SN", "vendor_sn", r.VendorSN},
		{"Model", "model", r.Model},
		{"Part Number", "part_number", r.PartNumber},
		{"Last Inspect", "last_inspect", r.LastInspect},
		{"Eth1", "eth1", r.Eth1},
		{"Eth2", "eth2", r.Eth2},
		{"Eth3", "eth3", r.Eth3},
		{"System Software", "system_software", r.SystemSoftware},
		{"Control Firmware", "control_firmware", r.ControlFirmware},
	}
}
