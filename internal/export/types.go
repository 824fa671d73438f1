package export

import "fmt"

// Format selects the on-disk representation of an exported transcript.
type Format string

const (
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
)

// ParseFormat maps a user-supplied format string to a Format. An empty
// string defaults to plain text.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "txt", "text":
		return FormatText, nil
	case "srt":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Result describes a file written by the exporter.
type Result struct {
	Path   string `json:"path"`
	Format Format `json:"format"`
	Bytes  int    `json:"bytes"`
}
