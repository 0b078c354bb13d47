package domain

// Validation test names.
const (
	TestStructural   = "structural"
	TestConfidence   = "confidence"
	TestStatistical  = "statistical"
	TestLogical      = "logical"
	TestCompleteness = "completeness"
)

type Violation struct {
	Type     string   `json:"type"`
	Details  string   `json:"details"`
	Severity string   `json:"severity"`
	Source   string   `json:"source,omitempty"`
	Target   string   `json:"target,omitempty"`
	PValue   *float64 `json:"p_value,omitempty"`
}

type TestResult struct {
	Passed     bool        `json:"passed"`
	Score      float64     `json:"score"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidationReport holds the per-test results of one validator run.
// Satisfaction is a policy decision: every test must reach the configured
// score floor.
type ValidationReport struct {
	Tests      map[string]TestResult `json:"tests"`
	ScoreFloor float64               `json:"score_floor"`
	Satisfied  bool                  `json:"satisfied"`
}

func NewValidationReport(scoreFloor float64) *ValidationReport {
	return &ValidationReport{
		Tests:      make(map[string]TestResult),
		ScoreFloor: scoreFloor,
	}
}

func (r *ValidationReport) Add(name string, result TestResult) {
	r.Tests[name] = result
	r.Satisfied = r.satisfactory()
}

func (r *ValidationReport) satisfactory() bool {
	if len(r.Tests) == 0 {
		return false
	}
	for _, t := range r.Tests {
		if !t.Passed && t.Score < r.ScoreFloor {
			return false
		}
	}
	return true
}

// Issues flattens all violations across tests.
func (r *ValidationReport) Issues() []Violation {
	names := []string{TestStructural, TestConfidence, TestStatistical, TestLogical, TestCompleteness}
	var out []Violation
	for _, name := range names {
		if t, ok := r.Tests[name]; ok {
			out = append(out, t.Violations...)
		}
	}
	return out
}
