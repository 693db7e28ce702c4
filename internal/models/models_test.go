package models

import (
	"strings"
	"testing"
	"time"
)

func TestEntityTypeFolder(t *testing.T) {
	cases := map[EntityType]string{
		TypeCapture:    "captures",
		TypeProblem:    "problems",
		TypeHypothesis: "hypotheses",
		TypeExperiment: "experiments",
		TypeDecision:   "decisions",
		TypeArtifact:   "artifacts",
		"insight":      "insights",
	}
	for typ, want := range cases {
		if got := typ.Folder(); got != want {
			t.Errorf("%s.Folder() = %q, want %q", typ, got, want)
		}
	}
}

func TestDefaultStatus(t *testing.T) {
	cases := map[EntityType]string{
		TypeProblem:    "active",
		TypeHypothesis: "draft",
		TypeExperiment: "planned",
		TypeArtifact:   "draft",
	}
	for typ, want := range cases {
		got := typ.DefaultStatus()
		if got == nil || *got != want {
			t.Errorf("%s default status = %v, want %q", typ, got, want)
		}
	}
	if TypeCapture.DefaultStatus() != nil || TypeDecision.DefaultStatus() != nil {
		t.Error("capture and decision should have no default status")
	}
}

func TestNewEntityID(t *testing.T) {
	id := NewEntityID(TypeHypothesis)
	if !strings.HasPrefix(id, "hyp_") {
		t.Errorf("id = %q, want hyp_ prefix", id)
	}
	if len(id) != len("hyp_")+12 {
		t.Errorf("len(id) = %d", len(id))
	}
	if NewProductID() == NewProductID() {
		t.Error("product ids should be unique")
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 12_000_000, time.FixedZone("X", 3600))
	if got := Timestamp(ts); got != "2024-03-05T06:08:09.012Z" {
		t.Errorf("Timestamp = %q", got)
	}
}
