package evidence

// Dataset is column-oriented observational data: one sample series per
// variable name. Series may have different lengths; pairwise computations
// truncate to the shorter one.
type Dataset struct {
	columns map[string][]float64
	order   []string
}

func NewDataset() *Dataset {
	return &Dataset{columns: make(map[string][]float64)}
}

// FromColumns builds a dataset from a column map. Map iteration order is
// not preserved; callers that care about variable order should add series
// one at a time.
func FromColumns(columns map[string][]float64) *Dataset {
	d := NewDataset()
	for name, values := range columns {
		d.AddSeries(name, values)
	}
	return d
}

// AddSeries registers (or replaces) the observation series for a variable.
func (d *Dataset) AddSeries(name string, values []float64) {
	if _, ok := d.columns[name]; !ok {
		d.order = append(d.order, name)
	}
	series := make([]float64, len(values))
	copy(series, values)
	d.columns[name] = series
}

// Series returns the observations for a variable.
func (d *Dataset) Series(name string) ([]float64, bool) {
	s, ok := d.columns[name]
	return s, ok
}

func (d *Dataset) Has(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// Variables returns the registered variable names in insertion order.
func (d *Dataset) Variables() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Dataset) Len() int { return len(d.columns) }
