package service

import (
	"math"

	"github.com/causelab/causeway/internal/domain"
)

// Sample is one self-consistency sample outcome for a single candidate:
// whether this sample proposed it, and with what per-sample confidence.
type Sample struct {
	Proposed   bool
	Confidence float64
}

// FrequencyConfidence is the fraction of samples proposing the candidate.
func FrequencyConfidence(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, s := range samples {
		if s.Proposed {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

// MeanSampleConfidence averages per-sample confidence over proposing
// samples; 0 when no sample proposed the candidate.
func MeanSampleConfidence(samples []Sample) float64 {
	var sum float64
	n := 0
	for _, s := range samples {
		if s.Proposed {
			sum += s.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// KnowledgeConfidence fuses agreement frequency with mean per-sample
// confidence. Pure and order-independent over samples.
func KnowledgeConfidence(samples []Sample) float64 {
	return clamp01((FrequencyConfidence(samples) + MeanSampleConfidence(samples)) / 2)
}

// StatisticalConfidence averages |strength| across available evidence
// signals. The second return is false when the profile carries no usable
// signal, in which case the hybrid score falls back to knowledge alone.
func StatisticalConfidence(profile *domain.EvidenceProfile) (float64, bool) {
	if !profile.Available() {
		return 0, false
	}
	var sum float64
	n := 0
	for _, s := range profile.Signals {
		if !s.Available {
			continue
		}
		sum += math.Abs(s.Strength)
		n++
	}
	return clamp01(sum / float64(n)), true
}

// HybridConfidence combines knowledge and statistical confidence with
// weight alpha on knowledge. When no statistical signal is available the
// knowledge score passes through undiluted rather than being averaged
// against a phantom zero.
func HybridConfidence(knowledge, statistical float64, statAvailable bool, alpha float64) float64 {
	if !statAvailable {
		return clamp01(knowledge)
	}
	return clamp01(alpha*knowledge + (1-alpha)*statistical)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
