package filter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/s0up4200/trctl/transmission"
)

func testTorrent() transmission.Torrent {
	return transmission.Torrent{
		"id":           json.Number("1"),
		"name":         "Debian 12.5 amd64 netinst",
		"totalSize":    json.Number("658505728"),
		"addedDate":    json.Number(jsonInt(time.Now().AddDate(0, 0, -40).Unix())),
		"isFinished":   false,
		"rateDownload": json.Number("0"),
		"rateUpload":   json.Number("2048"),
		"percentDone":  json.Number("0.42"),
		"files": []any{
			map[string]any{"name": "debian.iso", "length": json.Number("658505728")},
		},
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCompileExprFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `percentDone < 1`,
			wantErr:    false,
		},
		{
			name:        "empty expression",
			expression:  "  ",
			wantErr:     true,
			errContains: "empty filter expression",
		},
		{
			name:       "invalid syntax",
			expression: `contains(name, "unclosed`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `rateDownload == 0 and daysSince(addedDate) > 30 and totalSize > bytes("100 MB")`,
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := CompileExprFilter(tt.expression)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error but got none")
					return
				}
				var filterErr *Error
				if !errors.As(err, &filterErr) {
					t.Errorf("expected *Error, got %T", err)
				} else if filterErr.Stage != StageCompile {
					t.Errorf("Stage = %q, want %q", filterErr.Stage, StageCompile)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if filter == nil {
				t.Errorf("expected filter but got nil")
			} else if filter.String() != tt.expression {
				t.Errorf("String() = %q, want %q", filter.String(), tt.expression)
			}
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	torrent := testTorrent()

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{name: "incomplete", expression: `percentDone < 1`, expected: true},
		{name: "stalled download", expression: `rateDownload == 0`, expected: true},
		{name: "seeding", expression: `rateUpload > 0`, expected: true},
		{name: "finished flag", expression: `isFinished`, expected: false},
		{name: "name contains", expression: `contains(name, "DEBIAN")`, expected: true},
		{name: "name starts with", expression: `startsWith(name, "ubuntu")`, expected: false},
		{name: "older than a month", expression: `daysSince(addedDate) > 30`, expected: true},
		{name: "added before", expression: `addedDate < daysAgo(7)`, expected: true},
		{name: "size", expression: `totalSize > bytes("500 MB") and totalSize < bytes("1 GB")`, expected: true},
		{name: "file count", expression: `fileCount() == 1`, expected: true},
		{name: "has field", expression: `has("hashString")`, expected: false},
		{name: "nested file", expression: `files[0].name == "debian.iso"`, expected: true},
		{name: "combined", expression: `percentDone < 1 and (rateDownload > 0 or daysSince(addedDate) > 30)`, expected: true},
		{name: "missing field", expression: `labels`, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileExprFilter(tt.expression)
			if err != nil {
				t.Fatalf("failed to compile %q: %v", tt.expression, err)
			}

			got, err := f.Evaluate(torrent)
			if err != nil {
				t.Fatalf("unexpected evaluation error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expression, got, tt.expected)
			}
		})
	}
}

func TestFilterNonBoolResult(t *testing.T) {
	f, err := CompileExprFilter(`name`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.Evaluate(testTorrent())
	var filterErr *Error
	if !errors.As(err, &filterErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if filterErr.Stage != StageEvaluate {
		t.Errorf("Stage = %q, want %q", filterErr.Stage, StageEvaluate)
	}
	if filterErr.Torrent != "Debian 12.5 amd64 netinst" {
		t.Errorf("Torrent = %q", filterErr.Torrent)
	}
	if !errors.Is(err, ErrNotBool) {
		t.Errorf("expected ErrNotBool, got %v", err)
	}
}

func TestFilterMissingField(t *testing.T) {
	partial := transmission.Torrent{"id": json.Number("2"), "name": "partial"}

	tests := []struct {
		name       string
		expression string
	}{
		{name: "comparison", expression: `percentDone < 1`},
		{name: "arithmetic", expression: `totalSize / 2 > bytes("1 MB")`},
		{name: "helper argument", expression: `contains(labels, "linux")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CompileExprFilter(tt.expression)
			if err != nil {
				t.Fatalf("failed to compile %q: %v", tt.expression, err)
			}

			got, err := f.Evaluate(partial)
			if err != nil {
				t.Fatalf("unexpected evaluation error: %v", err)
			}
			if got {
				t.Errorf("Evaluate(%q) matched a torrent without the field", tt.expression)
			}
		})
	}
}

func TestApplySkipsTorrentsWithoutField(t *testing.T) {
	complete := transmission.Torrent{"id": json.Number("1"), "percentDone": json.Number("0.5")}
	partial := transmission.Torrent{"id": json.Number("2")}

	f, err := CompileExprFilter(`percentDone < 1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matched, err := f.Apply([]transmission.Torrent{complete, partial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if id, _ := matched[0].ID(); id != 1 {
		t.Errorf("matched torrent id = %d, want 1", id)
	}
}

func TestFilterRuntimeErrorWithFieldsPresent(t *testing.T) {
	f, err := CompileExprFilter(`files[5].name == "x"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.Evaluate(testTorrent())
	var filterErr *Error
	if !errors.As(err, &filterErr) || filterErr.Stage != StageEvaluate {
		t.Fatalf("expected evaluation *Error, got %v", err)
	}
}

func TestApply(t *testing.T) {
	done := testTorrent()
	done["id"] = json.Number("2")
	done["percentDone"] = json.Number("1")

	f, err := CompileExprFilter(`percentDone == 1`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matched, err := f.Apply([]transmission.Torrent{testTorrent(), done})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
	if id, _ := matched[0].ID(); id != 2 {
		t.Errorf("matched torrent id = %d, want 2", id)
	}
}
