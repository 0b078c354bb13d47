package service

import (
	"math"
	"testing"

	"github.com/causelab/causeway/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFrequencyConfidence(t *testing.T) {
	samples := []Sample{
		{Proposed: true, Confidence: 0.9},
		{Proposed: true, Confidence: 0.7},
		{Proposed: false},
		{Proposed: true, Confidence: 0.8},
		{Proposed: false},
	}
	if got := FrequencyConfidence(samples); !almostEqual(got, 0.6) {
		t.Errorf("FrequencyConfidence = %v, want 0.6", got)
	}
}

func TestMeanSampleConfidenceIgnoresNonProposing(t *testing.T) {
	samples := []Sample{
		{Proposed: true, Confidence: 0.9},
		{Proposed: false, Confidence: 0.1},
		{Proposed: true, Confidence: 0.7},
	}
	if got := MeanSampleConfidence(samples); !almostEqual(got, 0.8) {
		t.Errorf("MeanSampleConfidence = %v, want 0.8", got)
	}
}

func TestKnowledgeConfidenceUnanimous(t *testing.T) {
	samples := []Sample{
		{Proposed: true, Confidence: 0.9},
		{Proposed: true, Confidence: 0.9},
		{Proposed: true, Confidence: 0.9},
	}
	// freq 1.0, mean 0.9 -> (1.0+0.9)/2
	if got := KnowledgeConfidence(samples); !almostEqual(got, 0.95) {
		t.Errorf("KnowledgeConfidence = %v, want 0.95", got)
	}
}

func TestKnowledgeConfidenceNeverProposed(t *testing.T) {
	samples := []Sample{{}, {}, {}}
	if got := KnowledgeConfidence(samples); got != 0 {
		t.Errorf("KnowledgeConfidence = %v, want 0", got)
	}
}

func TestStatisticalConfidenceMeanOfMagnitudes(t *testing.T) {
	profile := &domain.EvidenceProfile{Signals: []domain.Signal{
		{Name: domain.SignalPearson, Strength: 0.8, Available: true},
		{Name: domain.SignalSpearman, Strength: -0.6, Available: true},
		{Name: domain.SignalLagged, Available: false, Strength: 0.99},
	}}
	got, available := StatisticalConfidence(profile)
	if !available {
		t.Fatal("expected statistical confidence to be available")
	}
	if !almostEqual(got, 0.7) {
		t.Errorf("StatisticalConfidence = %v, want 0.7", got)
	}
}

func TestStatisticalConfidenceUnavailable(t *testing.T) {
	if _, available := StatisticalConfidence(nil); available {
		t.Error("nil profile should be unavailable")
	}
	empty := &domain.EvidenceProfile{}
	if _, available := StatisticalConfidence(empty); available {
		t.Error("empty profile should be unavailable")
	}
}

func TestHybridConfidenceBlends(t *testing.T) {
	got := HybridConfidence(0.9, 0.5, true, 0.6)
	// 0.6*0.9 + 0.4*0.5
	if !almostEqual(got, 0.74) {
		t.Errorf("HybridConfidence = %v, want 0.74", got)
	}
}

func TestHybridConfidenceWithoutEvidence(t *testing.T) {
	// With no statistical signal the knowledge confidence passes through
	// undiluted rather than being averaged against zero.
	got := HybridConfidence(0.9, 0, false, 0.6)
	if !almostEqual(got, 0.9) {
		t.Errorf("HybridConfidence = %v, want 0.9 passthrough", got)
	}
}
