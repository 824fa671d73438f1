package export

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/scribesearch/scribe-agent/internal/backend"
)

func testWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(t.TempDir())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	return w
}

func TestWriteTranscript_Text(t *testing.T) {
	w := testWriter(t)
	res, err := w.WriteTranscript(&backend.TranscribedMedia{
		MediaID:           "m-1",
		FileName:          "standup notes.mp3",
		Model:             "whisper-small",
		Duration:          125,
		TranscriptionText: "hello world",
	}, FormatText)
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	if !strings.HasSuffix(res.Path, "standup notes-20260314-092653.txt") {
		t.Fatalf("unexpected path %q", res.Path)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	content := string(data)
	for _, want := range []string{"File: standup notes.mp3", "Media ID: m-1", "Model: whisper-small", "Duration: 2:05", "hello world"} {
		if !strings.Contains(content, want) {
			t.Fatalf("export missing %q:\n%s", want, content)
		}
	}
	if res.Bytes != len(data) {
		t.Fatalf("Bytes = %d, want %d", res.Bytes, len(data))
	}
}

func TestWriteTranscript_SRT(t *testing.T) {
	w := testWriter(t)
	res, err := w.WriteTranscript(&backend.TranscribedMedia{
		MediaID:           "m-2",
		FileName:          "talk.mp4",
		Duration:          10,
		TranscriptionText: "first part\n\nsecond part",
	}, FormatSRT)
	if err != nil {
		t.Fatalf("WriteTranscript: %v", err)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "1\n00:00:00,000 --> ") {
		t.Fatalf("first cue malformed:\n%s", content)
	}
	if !strings.Contains(content, "--> 00:00:10,000\nsecond part") {
		t.Fatalf("last cue should end at media duration:\n%s", content)
	}
	if !strings.Contains(content, "\n2\n") {
		t.Fatalf("expected two cues:\n%s", content)
	}
}

func TestWriteTranscript_EmptyText(t *testing.T) {
	w := testWriter(t)
	if _, err := w.WriteTranscript(&backend.TranscribedMedia{MediaID: "m-3"}, FormatText); err == nil {
		t.Fatal("expected error for empty transcription")
	}
}

func TestWriteAnswer_CitesSources(t *testing.T) {
	w := testWriter(t)
	res, err := w.WriteAnswer("what was decided?", &backend.QueryResponse{
		Answer: "The launch moved to Friday.",
		Sources: []backend.QuerySource{
			{MediaID: "m-1", Start: 30, End: 92.4, Text: "we agreed to ship Friday", Distance: 0.2},
		},
	})
	if err != nil {
		t.Fatalf("WriteAnswer: %v", err)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	content := string(data)
	for _, want := range []string{
		"Question: what was decided?",
		"The launch moved to Friday.",
		"1. [80%] m-1 0:30-1:32",
		"we agreed to ship Friday",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("answer export missing %q:\n%s", want, content)
		}
	}
}

func TestWriteAnswer_EmptyAnswer(t *testing.T) {
	w := testWriter(t)
	if _, err := w.WriteAnswer("q", &backend.QueryResponse{}); err == nil {
		t.Fatal("expected error for empty answer")
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"txt", FormatText, false},
		{"text", FormatText, false},
		{"srt", FormatSRT, false},
		{"pdf", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseFormat(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseFormat(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}
