package domain

import "strings"

// Variable is a named node in the causal system. Variables are supplied by
// the caller at the start of a discovery run and never mutated afterwards.
type Variable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// VariableSet is the fixed, finite set of variables for one discovery run.
type VariableSet struct {
	vars  []Variable
	index map[string]int
}

func NewVariableSet(vars []Variable) *VariableSet {
	s := &VariableSet{index: make(map[string]int, len(vars))}
	for _, v := range vars {
		if _, ok := s.index[v.Name]; ok {
			continue
		}
		s.index[v.Name] = len(s.vars)
		s.vars = append(s.vars, v)
	}
	return s
}

// Lookup resolves a variable by name. Exact match first, then
// case-insensitive since oracle responses occasionally change casing.
func (s *VariableSet) Lookup(name string) (Variable, bool) {
	if i, ok := s.index[name]; ok {
		return s.vars[i], true
	}
	for _, v := range s.vars {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Variable{}, false
}

func (s *VariableSet) Contains(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// All returns the variables in insertion order.
func (s *VariableSet) All() []Variable {
	out := make([]Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

func (s *VariableSet) Len() int {
	return len(s.vars)
}
