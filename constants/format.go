package constants

import "strings"

// OutputFormat selects how generated forms are rendered.
type OutputFormat string

const (
	FormatJSON      OutputFormat = "json"
	FormatXML       OutputFormat = "xml"
	FormatIRSEfile  OutputFormat = "irs_efile"
	FormatMailReady OutputFormat = "mail_ready"
	FormatText      OutputFormat = "text"
)

var allOutputFormats = []OutputFormat{
	FormatJSON,
	FormatXML,
	FormatIRSEfile,
	FormatMailReady,
	FormatText,
}

func OutputFormatStrings() []string {
	result := make([]string, len(allOutputFormats))
	for i, f := range allOutputFormats {
		result[i] = string(f)
	}
	return result
}

// CanonicalizeOutputFormat returns FormatText for empty or unknown input.
func CanonicalizeOutputFormat(input string) (OutputFormat, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, f := range allOutputFormats {
		if normalized == string(f) {
			return f, true
		}
	}
	return FormatText, false
}
