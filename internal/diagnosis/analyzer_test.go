package diagnosis

import (
	"context"
	"errors"
	"testing"
)

// Minimal PNG header, enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestAnalyze_FixedWithoutKey(t *testing.T) {
	a := NewAnalyzer("", "")
	if a.Enabled() {
		t.Fatal("analyzer without key should not be enabled")
	}

	d, err := a.Analyze(context.Background(), pngBytes, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if d.Condition != "Early Leaf Blight" || d.Confidence != 89 || d.Source != "fixed" {
		t.Errorf("diagnosis = %+v", d)
	}
	if len(d.ID) != 12 {
		t.Errorf("ID = %q, want 12 chars", d.ID)
	}

	again, _ := a.Analyze(context.Background(), pngBytes, "image/png")
	if again.ID == d.ID {
		t.Error("expected distinct IDs per analysis")
	}
	if again.Solution != d.Solution {
		t.Error("fixed diagnosis should be deterministic")
	}
}

func TestAnalyze_RejectsBadInput(t *testing.T) {
	a := NewAnalyzer("", "")
	if _, err := a.Analyze(context.Background(), nil, "image/png"); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("nil image: err = %v, want ErrEmptyImage", err)
	}
	if _, err := a.Analyze(context.Background(), []byte("just some text"), ""); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("text body: err = %v, want ErrUnsupportedImage", err)
	}
}

func TestAnalyze_WithModel(t *testing.T) {
	var gotURL string
	a := &Analyzer{complete: func(ctx context.Context, dataURL string) (string, error) {
		gotURL = dataURL
		return "```json\n{\"condition\": \"Maize Streak Virus\", \"confidence\": 72, \"solution\": \"Remove infected plants.\"}\n```", nil
	}}

	d, err := a.Analyze(context.Background(), pngBytes, "image/png")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if d.Condition != "Maize Streak Virus" || d.Confidence != 72 || d.Source != "openai" {
		t.Errorf("diagnosis = %+v", d)
	}
	if gotURL[:22] != "data:image/png;base64," {
		t.Errorf("data URL prefix = %q", gotURL[:22])
	}
}

func TestAnalyze_ModelError(t *testing.T) {
	a := &Analyzer{complete: func(ctx context.Context, dataURL string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	if _, err := a.Analyze(context.Background(), pngBytes, "image/png"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		conf    int
		wantErr bool
	}{
		{"bare object", `{"condition":"Healthy","confidence":95,"solution":"None needed."}`, "Healthy", 95, false},
		{"prose around", `Sure! {"condition":"Rust","confidence":60.7,"solution":"Spray."} Hope it helps`, "Rust", 60, false},
		{"clamps high", `{"condition":"Rust","confidence":180}`, "Rust", 100, false},
		{"clamps low", `{"condition":"Rust","confidence":-3}`, "Rust", 0, false},
		{"no object", `I can't tell`, "", 0, true},
		{"missing condition", `{"confidence": 50}`, "", 0, true},
		{"invalid json", `{"condition": }`, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseReply(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReply: %v", err)
			}
			if d.Condition != tt.want || d.Confidence != tt.conf {
				t.Errorf("got %s/%d, want %s/%d", d.Condition, d.Confidence, tt.want, tt.conf)
			}
		})
	}
}
