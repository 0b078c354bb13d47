package evidence

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/causelab/causeway/internal/domain"
	"go.uber.org/zap"
)

// minSamples is the fewest paired observations any test runs on.
const minSamples = 3

// Analyzer computes per-pair statistical signals from an observational
// dataset. Missing columns or too few rows yield an empty profile rather
// than an error; the caller treats absent evidence as neutral.
type Analyzer struct {
	data         *Dataset
	significance float64
	logger       *zap.Logger
}

func NewAnalyzer(data *Dataset, significance float64, logger *zap.Logger) *Analyzer {
	return &Analyzer{data: data, significance: significance, logger: logger}
}

var _ domain.EvidenceOracle = (*Analyzer)(nil)

// ComputeProfile measures the source -> target relationship. Signal strength
// is normalized to [-1, 1] with negative values counting against the claimed
// direction.
func (a *Analyzer) ComputeProfile(ctx context.Context, source, target string, conditioning []string) (*domain.EvidenceProfile, error) {
	profile := &domain.EvidenceProfile{Source: source, Target: target}

	x, okX := a.data.Series(source)
	y, okY := a.data.Series(target)
	if !okX || !okY {
		return profile, nil
	}
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < minSamples {
		return profile, nil
	}
	x, y = x[:n], y[:n]

	profile.Signals = append(profile.Signals, a.pearsonSignal(x, y))
	profile.Signals = append(profile.Signals, a.spearmanSignal(x, y))
	profile.Signals = append(profile.Signals, a.laggedSignal(x, y))
	profile.Signals = append(profile.Signals, a.regressionSignal(x, y))

	if len(conditioning) > 0 {
		partial, ci := a.partialSignals(source, target, conditioning, n)
		profile.Signals = append(profile.Signals, partial, ci)
	} else {
		profile.Signals = append(profile.Signals, a.independenceSignal(x, y))
	}

	a.logger.Debug("evidence profile computed",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("samples", n),
		zap.Int("conditioning", len(conditioning)))
	return profile, nil
}

func (a *Analyzer) pearsonSignal(x, y []float64) domain.Signal {
	r, ok := pearson(x, y)
	if !ok {
		return domain.Signal{Name: domain.SignalPearson}
	}
	p := fisherPValue(r, len(x), 0)
	return domain.Signal{
		Name:      domain.SignalPearson,
		Strength:  r,
		Available: true,
		PValue:    &p,
		Detail:    fmt.Sprintf("n=%d", len(x)),
	}
}

func (a *Analyzer) spearmanSignal(x, y []float64) domain.Signal {
	r, ok := pearson(ranks(x), ranks(y))
	if !ok {
		return domain.Signal{Name: domain.SignalSpearman}
	}
	p := fisherPValue(r, len(x), 0)
	return domain.Signal{
		Name:      domain.SignalSpearman,
		Strength:  r,
		Available: true,
		PValue:    &p,
	}
}

// laggedSignal compares the lag-1 cross-correlations in both directions.
// When the target leads the source more strongly than it follows, the
// signal turns negative: the data favors the reverse direction.
func (a *Analyzer) laggedSignal(x, y []float64) domain.Signal {
	if len(x) < minSamples+1 {
		return domain.Signal{Name: domain.SignalLagged}
	}
	forward, okF := pearson(x[:len(x)-1], y[1:])
	backward, okB := pearson(y[:len(y)-1], x[1:])
	if !okF || !okB {
		return domain.Signal{Name: domain.SignalLagged}
	}
	strength := forward
	detail := "source leads target at lag 1"
	if math.Abs(backward) > math.Abs(forward) {
		strength = -math.Abs(backward)
		detail = "target leads source at lag 1"
	}
	return domain.Signal{
		Name:      domain.SignalLagged,
		Strength:  strength,
		Available: true,
		Detail:    detail,
	}
}

// regressionSignal is the R-squared of target ~ source, signed by the slope.
func (a *Analyzer) regressionSignal(x, y []float64) domain.Signal {
	slope, r2, ok := ols(x, y)
	if !ok {
		return domain.Signal{Name: domain.SignalRegression}
	}
	strength := r2
	if slope < 0 {
		strength = -r2
	}
	return domain.Signal{
		Name:      domain.SignalRegression,
		Strength:  strength,
		Available: true,
		Detail:    fmt.Sprintf("slope=%.4f", slope),
	}
}

// independenceSignal runs the unconditional independence test. Strength is
// the correlation itself; the p-value carries the verdict, with anything
// above the significance level reading as independent.
func (a *Analyzer) independenceSignal(x, y []float64) domain.Signal {
	r, ok := pearson(x, y)
	if !ok {
		return domain.Signal{Name: domain.SignalCondIndependence}
	}
	p := fisherPValue(r, len(x), 0)
	detail := "dependent (unconditional)"
	if p > a.significance {
		detail = "independent (unconditional)"
	}
	return domain.Signal{
		Name:      domain.SignalCondIndependence,
		Strength:  r,
		Available: true,
		PValue:    &p,
		Detail:    detail,
	}
}

// partialSignals computes the partial correlation of source and target given
// the conditioning set, plus the conditional-independence verdict derived
// from it.
func (a *Analyzer) partialSignals(source, target string, conditioning []string, n int) (domain.Signal, domain.Signal) {
	names := []string{source, target}
	for _, c := range conditioning {
		if c == source || c == target || !a.data.Has(c) {
			continue
		}
		names = append(names, c)
	}
	if len(names) == 2 {
		// Conditioning set collapsed to nothing usable.
		x, _ := a.data.Series(source)
		y, _ := a.data.Series(target)
		return domain.Signal{Name: domain.SignalPartial}, a.independenceSignal(x[:n], y[:n])
	}

	series := make([][]float64, len(names))
	for i, name := range names {
		s, _ := a.data.Series(name)
		if len(s) < n {
			n = len(s)
		}
		series[i] = s
	}
	dim := len(names) - 2
	if n < dim+minSamples {
		return domain.Signal{Name: domain.SignalPartial}, domain.Signal{Name: domain.SignalCondIndependence}
	}
	for i := range series {
		series[i] = series[i][:n]
	}

	r, ok := partialCorrelation(series)
	if !ok {
		return domain.Signal{Name: domain.SignalPartial}, domain.Signal{Name: domain.SignalCondIndependence}
	}
	p := fisherPValue(r, n, dim)

	partial := domain.Signal{
		Name:      domain.SignalPartial,
		Strength:  r,
		Available: true,
		PValue:    &p,
		Detail:    fmt.Sprintf("given %d conditioning variables", dim),
	}
	ci := domain.Signal{
		Name:      domain.SignalCondIndependence,
		Strength:  r,
		Available: true,
		PValue:    &p,
		Detail:    "dependent given conditioning set",
	}
	if p > a.significance {
		ci.Detail = "independent given conditioning set"
	}
	return partial, ci
}

func mean(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

// pearson returns false when either series is constant.
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n < minSamples || len(y) != n {
		return 0, false
	}
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	r := sxy / math.Sqrt(sxx*syy)
	// Guard tiny float drift past the valid range.
	return math.Max(-1, math.Min(1, r)), true
}

// ranks assigns average ranks, with ties sharing their midpoint.
func ranks(x []float64) []float64 {
	n := len(x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// ols fits y = a + b*x and returns the slope and R-squared.
func ols(x, y []float64) (slope, r2 float64, ok bool) {
	r, okR := pearson(x, y)
	if !okR {
		return 0, 0, false
	}
	mx, my := mean(x), mean(y)
	var sxy, sxx float64
	for i := range x {
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
	}
	return sxy / sxx, r * r, true
}

// fisherPValue is the two-sided p-value for a (partial) correlation under
// the Fisher z-transform normal approximation. dim is the size of the
// conditioning set.
func fisherPValue(r float64, n, dim int) float64 {
	df := float64(n - dim - 3)
	if df <= 0 {
		return 1.0
	}
	if r >= 1 || r <= -1 {
		return 0.0
	}
	z := 0.5 * math.Log((1+r)/(1-r)) * math.Sqrt(df)
	return math.Erfc(math.Abs(z) / math.Sqrt2)
}

// partialCorrelation computes the correlation between series[0] and
// series[1] given the rest, via the inverse of the correlation matrix.
func partialCorrelation(series [][]float64) (float64, bool) {
	k := len(series)
	corr := make([][]float64, k)
	for i := range corr {
		corr[i] = make([]float64, k)
		corr[i][i] = 1
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r, ok := pearson(series[i], series[j])
			if !ok {
				return 0, false
			}
			corr[i][j], corr[j][i] = r, r
		}
	}

	prec, ok := invert(corr)
	if !ok {
		return 0, false
	}
	denom := math.Sqrt(prec[0][0] * prec[1][1])
	if denom == 0 {
		return 0, false
	}
	r := -prec[0][1] / denom
	return math.Max(-1, math.Min(1, r)), true
}

// invert performs Gauss-Jordan elimination with partial pivoting. Returns
// false for singular matrices.
func invert(m [][]float64) ([][]float64, bool) {
	n := len(m)
	a := make([][]float64, n)
	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		a[i] = make([]float64, n)
		copy(a[i], m[i])
		inv[i] = make([]float64, n)
		inv[i][i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		inv[col], inv[pivot] = inv[pivot], inv[col]

		scale := a[col][col]
		for j := 0; j < n; j++ {
			a[col][j] /= scale
			inv[col][j] /= scale
		}
		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := a[row][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				a[row][j] -= factor * a[col][j]
				inv[row][j] -= factor * inv[col][j]
			}
		}
	}
	return inv, true
}
