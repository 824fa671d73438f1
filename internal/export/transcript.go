package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

// Writer persists transcripts and answered queries under a single export
// directory, one file per export.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	if err := ValidateDir(dir); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// WriteTranscript renders media's transcription in the given format and
// writes it to a sanitized, timestamped file.
func (w *Writer) WriteTranscript(media *backend.TranscribedMedia, format Format) (*Result, error) {
	if media == nil {
		return nil, fmt.Errorf("media is required")
	}
	text := strings.TrimSpace(media.TranscriptionText)
	if text == "" {
		return nil, fmt.Errorf("media %s has no transcription text", media.MediaID)
	}

	var content string
	switch format {
	case FormatSRT:
		content = srtDocument(text, media.Duration)
	case FormatText:
		content = textDocument(media, text)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	name := fmt.Sprintf("%s-%s.%s", safeBaseName(media.FileName, media.MediaID), w.stamp(), format)
	return w.write(name, format, content)
}

// WriteAnswer writes a query answer with its cited sources as a text file.
func (w *Writer) WriteAnswer(question string, resp *backend.QueryResponse) (*Result, error) {
	if resp == nil || strings.TrimSpace(resp.Answer) == "" {
		return nil, fmt.Errorf("answer is empty")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(question))
	fmt.Fprintf(&b, "%s\n", strings.TrimSpace(resp.Answer))
	if len(resp.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for i, src := range resp.Sources {
			fmt.Fprintf(&b, "%d. [%d%%] %s %s-%s\n   %s\n",
				i+1, src.RelevancePercent(), src.MediaID,
				clockTime(src.Start), clockTime(src.End),
				strings.TrimSpace(src.Text))
		}
	}

	name := fmt.Sprintf("answer-%s-%s.txt", safeBaseName(question, "query"), w.stamp())
	return w.write(name, FormatText, b.String())
}

func (w *Writer) write(name string, format Format, content string) (*Result, error) {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write export file: %w", err)
	}
	return &Result{Path: path, Format: format, Bytes: len(content)}, nil
}

func (w *Writer) stamp() string {
	return w.now().UTC().Format("20060102-150405")
}

func textDocument(media *backend.TranscribedMedia, text string) string {
	var b strings.Builder
	if media.FileName != "" {
		fmt.Fprintf(&b, "File: %s\n", media.FileName)
	}
	fmt.Fprintf(&b, "Media ID: %s\n", media.MediaID)
	if media.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", media.Model)
	}
	if media.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", clockTime(media.Duration))
	}
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}

// srtDocument emits cues split on paragraph breaks, spreading the media
// duration across them proportionally to paragraph length.
func srtDocument(text string, duration float64) string {
	paragraphs := splitParagraphs(text)
	if duration <= 0 {
		duration = float64(len(paragraphs))
	}

	totalRunes := 0
	for _, p := range paragraphs {
		totalRunes += len([]rune(p))
	}

	var b strings.Builder
	offset := 0.0
	for i, p := range paragraphs {
		share := duration / float64(len(paragraphs))
		if totalRunes > 0 {
			share = duration * float64(len([]rune(p))) / float64(totalRunes)
		}
		end := offset + share
		if i == len(paragraphs)-1 {
			end = duration
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(offset), srtTimestamp(end), p)
		offset = end
	}
	return b.String()
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{text}
	}
	return out
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(math.Round(seconds * 1000))
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	s := totalSec % 60
	totalMin := totalSec / 60
	m := totalMin % 60
	h := totalMin / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// clockTime formats seconds as M:SS or H:MM:SS for human-facing output.
func clockTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds))
	s := total % 60
	totalMin := total / 60
	m := totalMin % 60
	h := totalMin / 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
