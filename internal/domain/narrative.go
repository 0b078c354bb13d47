package domain

import (
	"fmt"
	"strings"
)

// Narrative renders the profile as a human-readable summary suitable for
// re-presenting statistical evidence to the knowledge oracle.
func (p *EvidenceProfile) Narrative() string {
	if !p.Available() {
		return "No observational evidence available for this pair."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Statistical evidence for %s -> %s:\n", p.Source, p.Target)
	for _, s := range p.Signals {
		if !s.Available {
			continue
		}
		line := fmt.Sprintf("- %s: %.3f (%s)", signalLabel(s.Name), s.Strength, interpretStrength(s.Strength))
		if s.PValue != nil {
			line += fmt.Sprintf(", p=%.4f", *s.PValue)
		}
		if s.Detail != "" {
			line += " — " + s.Detail
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func signalLabel(name string) string {
	switch name {
	case SignalPearson:
		return "Pearson correlation"
	case SignalSpearman:
		return "Spearman rank correlation"
	case SignalLagged:
		return "lagged precedence"
	case SignalRegression:
		return "regression slope"
	case SignalPartial:
		return "partial correlation"
	case SignalCondIndependence:
		return "conditional independence"
	default:
		return name
	}
}

func interpretStrength(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	var magnitude string
	switch {
	case abs >= 0.7:
		magnitude = "strong"
	case abs >= 0.4:
		magnitude = "moderate"
	case abs >= 0.1:
		magnitude = "weak"
	default:
		return "negligible"
	}
	if v < 0 {
		return magnitude + " negative"
	}
	return magnitude + " positive"
}
