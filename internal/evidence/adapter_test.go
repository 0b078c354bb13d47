package evidence

import (
	"context"
	"math"
	"testing"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

func testAnalyzer(data *Dataset) *Analyzer {
	return NewAnalyzer(data, 0.05, zap.NewNop())
}

func linear(n int, slope, intercept float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = slope*float64(i) + intercept
	}
	return out
}

func TestComputeProfileMissingColumn(t *testing.T) {
	data := NewDataset()
	data.AddSeries("x", linear(10, 1, 0))
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "missing", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	if profile.Available() {
		t.Error("expected empty profile for missing column")
	}
	if profile.Source != "x" || profile.Target != "missing" {
		t.Errorf("profile endpoints = %s -> %s", profile.Source, profile.Target)
	}
}

func TestComputeProfileTooFewRows(t *testing.T) {
	data := FromColumns(map[string][]float64{
		"x": {1, 2},
		"y": {2, 4},
	})
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	if profile.Available() {
		t.Error("expected empty profile below the sample minimum")
	}
}

func TestComputeProfileStrongRelationship(t *testing.T) {
	n := 20
	x := linear(n, 1, 0)
	y := make([]float64, n)
	for i := range y {
		y[i] = 2*x[i] + 1
	}
	data := NewDataset()
	data.AddSeries("x", x)
	data.AddSeries("y", y)
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}

	pearson := profile.Signal(domain.SignalPearson)
	if !pearson.Available || pearson.Strength < 0.99 {
		t.Errorf("pearson = %+v, want strength ~1", pearson)
	}
	spearman := profile.Signal(domain.SignalSpearman)
	if !spearman.Available || spearman.Strength < 0.99 {
		t.Errorf("spearman = %+v, want strength ~1", spearman)
	}
	reg := profile.Signal(domain.SignalRegression)
	if !reg.Available || reg.Strength < 0.99 {
		t.Errorf("regression = %+v, want strength ~1", reg)
	}
	ci := profile.Signal(domain.SignalCondIndependence)
	if !ci.Available || ci.Strength < 0.99 {
		t.Errorf("independence signal = %+v, want strong dependence", ci)
	}
	if ci.PValue == nil || *ci.PValue > 0.05 {
		t.Errorf("independence p-value = %v, want below significance", ci.PValue)
	}
}

func TestComputeProfileNegativeRelationship(t *testing.T) {
	n := 20
	x := linear(n, 1, 0)
	y := make([]float64, n)
	for i := range y {
		y[i] = -3 * x[i]
	}
	data := NewDataset()
	data.AddSeries("x", x)
	data.AddSeries("y", y)
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	if p := profile.Signal(domain.SignalPearson); p.Strength > -0.99 {
		t.Errorf("pearson strength = %v, want ~-1", p.Strength)
	}
	if r := profile.Signal(domain.SignalRegression); r.Strength > -0.99 {
		t.Errorf("regression strength = %v, want ~-1 (negative slope)", r.Strength)
	}
}

func TestIndependentPairFlagged(t *testing.T) {
	// Orthogonal alternating patterns: no linear relationship.
	n := 20
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			x[i] = 1
		} else {
			x[i] = -1
		}
		if i%4 < 2 {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}
	data := NewDataset()
	data.AddSeries("x", x)
	data.AddSeries("y", y)
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	ci := profile.Signal(domain.SignalCondIndependence)
	if !ci.Available {
		t.Fatal("independence signal unavailable")
	}
	// The verdict lives in the p-value; the strength stays the honest
	// near-zero correlation rather than a sentinel.
	if math.Abs(ci.Strength) > 0.3 {
		t.Errorf("independence strength = %v, want near zero for independent pair", ci.Strength)
	}
	if ci.PValue == nil || *ci.PValue <= 0.05 {
		t.Errorf("p-value = %v, want above significance", ci.PValue)
	}
	if ci.Detail != "independent (unconditional)" {
		t.Errorf("detail = %q", ci.Detail)
	}
}

func TestLaggedSignalDetectsLead(t *testing.T) {
	x := []float64{3, 7, 1, 9, 4, 8, 2, 6, 5, 10, 3, 7, 1, 9, 4, 8}
	y := make([]float64, len(x))
	y[0] = 5
	for i := 1; i < len(x); i++ {
		y[i] = x[i-1]
	}
	data := NewDataset()
	data.AddSeries("x", x)
	data.AddSeries("y", y)
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	lagged := profile.Signal(domain.SignalLagged)
	if !lagged.Available || lagged.Strength < 0.9 {
		t.Errorf("lagged = %+v, want strong forward lead", lagged)
	}
}

func TestConfounderRemovedByConditioning(t *testing.T) {
	// x and y both track z plus orthogonal perturbations. Unconditionally
	// they correlate strongly; given z they are independent.
	n := 20
	z := linear(n, 1, 0)
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		e1, e2 := 0.5, 0.5
		if i%2 == 1 {
			e1 = -0.5
		}
		if i%4 >= 2 {
			e2 = -0.5
		}
		x[i] = z[i] + e1
		y[i] = z[i] + e2
	}
	data := NewDataset()
	data.AddSeries("x", x)
	data.AddSeries("y", y)
	data.AddSeries("z", z)
	a := testAnalyzer(data)

	unconditional, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	if p := unconditional.Signal(domain.SignalPearson); p.Strength < 0.9 {
		t.Fatalf("unconditional pearson = %v, want strong", p.Strength)
	}

	conditional, err := a.ComputeProfile(context.Background(), "x", "y", []string{"z"})
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	partial := conditional.Signal(domain.SignalPartial)
	if !partial.Available {
		t.Fatal("partial correlation unavailable")
	}
	if math.Abs(partial.Strength) > 0.4 {
		t.Errorf("partial strength = %v, want near zero given confounder", partial.Strength)
	}
	ci := conditional.Signal(domain.SignalCondIndependence)
	if !ci.Available {
		t.Fatal("conditional independence signal unavailable")
	}
	if math.Abs(ci.Strength) > 0.4 {
		t.Errorf("conditional independence strength = %v, want the partial correlation", ci.Strength)
	}
	if ci.PValue == nil || *ci.PValue <= 0.05 {
		t.Errorf("conditional p-value = %v, want above significance", ci.PValue)
	}
	if ci.Detail != "independent given conditioning set" {
		t.Errorf("detail = %q", ci.Detail)
	}
}

func TestConstantSeriesUnavailable(t *testing.T) {
	data := NewDataset()
	data.AddSeries("x", []float64{5, 5, 5, 5, 5})
	data.AddSeries("y", linear(5, 1, 0))
	a := testAnalyzer(data)

	profile, err := a.ComputeProfile(context.Background(), "x", "y", nil)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	if p := profile.Signal(domain.SignalPearson); p.Available {
		t.Error("pearson should be unavailable for a constant series")
	}
}
