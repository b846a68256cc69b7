package main

import (
	"testing"
	"time"

	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
)

func TestParseAsOf(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	got, err := parseAsOf("", now)
	if err != nil {
		t.Fatalf("parseAsOf: %v", err)
	}
	if want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("default as-of = %s, want %s", got, want)
	}

	got, err = parseAsOf(" 2024-01-31 ", now)
	if err != nil || !got.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseAsOf(2024-01-31) = %s, %v", got, err)
	}

	if _, err := parseAsOf("31/01/2024", now); err == nil {
		t.Error("expected an error for a non ISO date")
	}
}

func TestParseProductIDs(t *testing.T) {
	tests := []struct {
		raw     string
		want    []int64
		wantErr bool
	}{
		{"", nil, false},
		{"1, 2,,3", []int64{1, 2, 3}, false},
		{"4,x", nil, true},
		{"0", nil, true},
	}

	for _, tt := range tests {
		got, err := parseProductIDs(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseProductIDs(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseProductIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseProductIDs(%q) = %v, want %v", tt.raw, got, tt.want)
				break
			}
		}
	}
}

func TestExitStatus(t *testing.T) {
	partial := []*pipeline.RunReport{{Pipeline: "forecast", Status: pipeline.StatusCompletedWithErrors}}
	if err := exitStatus(partial); err != nil {
		t.Errorf("partial run: %v, want nil", err)
	}

	failed := append(partial, &pipeline.RunReport{Pipeline: "classification", Status: pipeline.StatusFailed, Error: "boom"})
	if err := exitStatus(failed); err == nil {
		t.Error("failed run: want an exit error")
	}
}
