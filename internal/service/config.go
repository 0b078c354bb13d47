package service

// Config carries the discovery engine's tunables. It is passed explicitly
// into each component; nothing here lives in global state.
type Config struct {
	// Alpha weights knowledge confidence against statistical confidence
	// in the hybrid score.
	Alpha float64

	// Samples is k, the self-consistency sample count per oracle question.
	Samples int

	// DeferBelow is the knowledge-confidence floor under which a candidate
	// edge is deferred without consulting evidence.
	DeferBelow float64

	// AcceptAbove is the hybrid-confidence threshold for acceptance.
	AcceptAbove float64

	// ContradictionThreshold is the |strength| at which an opposite-signed
	// evidence signal counts as contradicting the oracle's belief.
	ContradictionThreshold float64

	// SignificanceLevel for conditional-independence violations.
	SignificanceLevel float64

	// ScoreFloor is the per-test validation score floor gating satisfaction.
	ScoreFloor float64

	// MaxIterations bounds the refinement loop.
	MaxIterations int

	// MinEdgeConfidence: accepted edges below this are dropped by repair.
	MinEdgeConfidence float64

	// ViolationPenalty is subtracted from edges implicated in
	// statistical-consistency violations during repair.
	ViolationPenalty float64

	// MaxPaths and MaxPathLen bound the logical-consistency path sample.
	MaxPaths   int
	MaxPathLen int

	// MaxStatEdges bounds how many accepted edges the statistical
	// consistency test re-derives per validation pass.
	MaxStatEdges int

	// ResolveConflicts toggles the conflict-resolution phase.
	ResolveConflicts bool
}

func DefaultConfig() Config {
	return Config{
		Alpha:                  0.6,
		Samples:                5,
		DeferBelow:             0.3,
		AcceptAbove:            0.6,
		ContradictionThreshold: 0.5,
		SignificanceLevel:      0.05,
		ScoreFloor:             0.6,
		MaxIterations:          3,
		MinEdgeConfidence:      0.3,
		ViolationPenalty:       0.2,
		MaxPaths:               5,
		MaxPathLen:             3,
		MaxStatEdges:           10,
		ResolveConflicts:       true,
	}
}
