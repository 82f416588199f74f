package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/mediaforge/smartcut/segmenter"
)

func sampleBundle() ExportBundle {
	return ExportBundle{
		Video:       "/videos/ad.mp4",
		Duration:    80.0,
		ShotChanges: []float64{10.0, 50.0},
		SpeechSegments: []segmenter.SpeechSegment{
			{Start: 0, End: 80, Text: "..."},
		},
		FinalSplits: []segmenter.SplitPoint{
			{Timestamp: 10.0, Reason: segmenter.ReasonShotSpeakerChange, Confidence: 0.9},
		},
		SkippedShots: []segmenter.SkippedShot{
			{Timestamp: 50.0, Reason: "continuous speech, no cut"},
		},
		Segments: []segmenter.Segment{
			{Index: 0, Start: 0, End: 10, Duration: 10},
			{Index: 1, Start: 10, End: 80, Duration: 70},
		},
	}
}

func TestWriteBundle_JSONFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.json")
	if err := writeBundle(path, sampleBundle()); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	for _, key := range []string{"duration", "shot_changes", "speech_segments", "final_splits", "segments"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("export missing %q field", key)
		}
	}

	splits := doc["final_splits"].([]any)
	split := splits[0].(map[string]any)
	if split["reason"] != "shot change with speaker change" {
		t.Errorf("reason exported as %v, want the rationale tag string", split["reason"])
	}
	for _, key := range []string{"timestamp", "confidence"} {
		if _, ok := split[key]; !ok {
			t.Errorf("split missing %q field", key)
		}
	}

	seg := doc["segments"].([]any)[0].(map[string]any)
	for _, key := range []string{"index", "start", "end", "duration"} {
		if _, ok := seg[key]; !ok {
			t.Errorf("segment missing %q field", key)
		}
	}
}

func TestWriteBundle_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	if err := writeBundle(path, sampleBundle()); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Duration    float64   `yaml:"duration"`
		ShotChanges []float64 `yaml:"shot_changes"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("export is not valid YAML: %v", err)
	}
	if doc.Duration != 80.0 {
		t.Errorf("duration exported as %v, want 80.0", doc.Duration)
	}
	if len(doc.ShotChanges) != 2 {
		t.Errorf("shot_changes exported as %v, want 2 entries", doc.ShotChanges)
	}
}
