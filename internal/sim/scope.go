package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/ecosim/internal/model"
)

// cellScope evaluates one equation at one index. Every read is checked
// against the declared references; the first violation is kept in err and
// aborts the run once the rule returns.
type cellScope struct {
	r    *run
	eq   *model.Equation
	refs map[model.Ref]bool
	ix   model.Index
	used map[model.Ref]bool
	err  error
}

func (s *cellScope) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *cellScope) allow(ref model.Ref) bool {
	if !s.refs[ref] {
		s.fail(model.NewStructuralError(model.UndeclaredDependency,
			fmt.Sprintf("equation %s read %s without declaring it", s.eq.Label(), ref),
			s.eq.Target, ref.Name))
		return false
	}
	if s.used != nil {
		s.used[ref] = true
	}
	return true
}

func (s *cellScope) Index() model.Index     { return s.ix }
func (s *cellScope) Time() int              { return s.ix.T }
func (s *cellScope) Region() int            { return s.ix.R }
func (s *cellScope) Year() float64          { return s.r.dims.Year(s.ix.T) }
func (s *cellScope) Dims() model.Dimensions { return s.r.dims }

func (s *cellScope) Param(name string) float64 {
	return s.ParamAt(name, s.ix)
}

func (s *cellScope) ParamAt(name string, ix model.Index) float64 {
	if !s.allow(model.Now(name)) {
		return math.NaN()
	}
	v, err := s.r.bound.Lookup(name, ix)
	if err != nil {
		s.fail(err)
	}
	return v
}

func (s *cellScope) read(name string, ix model.Index) float64 {
	if _, isParam := s.r.st.Parameter(name); isParam {
		v, err := s.r.bound.Lookup(name, ix)
		if err != nil {
			s.fail(err)
		}
		return v
	}
	v, ok := s.r.table.Get(name, ix)
	if !ok {
		s.fail(fmt.Errorf("%s cannot read %s at %s", s.eq.Label(), name, ix))
	}
	return v
}

func (s *cellScope) Value(name string) float64 {
	if !s.allow(model.Now(name)) {
		return math.NaN()
	}
	return s.read(name, s.ix)
}

func (s *cellScope) ValueAt(name string, r int) float64 {
	if !s.allow(model.Now(name)) {
		return math.NaN()
	}
	return s.read(name, model.At(s.ix.T, r))
}

func (s *cellScope) Sum(name string) float64 {
	if !s.allow(model.Now(name)) {
		return math.NaN()
	}
	sum := 0.0
	for r := range s.r.dims.Regions {
		sum += s.read(name, model.At(s.ix.T, r))
	}
	return sum
}

func (s *cellScope) Lag(name string) model.Lagged { return s.lagged(name, 1, s.ix.R) }

func (s *cellScope) LagN(name string, k int) model.Lagged { return s.lagged(name, k, s.ix.R) }

func (s *cellScope) LagAt(name string, r int) model.Lagged { return s.lagged(name, 1, r) }

func (s *cellScope) lagged(name string, k, r int) model.Lagged {
	if !s.allow(model.Lag(name, k)) {
		return model.Absent(nil)
	}
	t := s.ix.T - k
	if t < 0 {
		ix := s.ix
		return model.Absent(func() {
			s.fail(&model.NoPreviousValueError{
				Equation: s.eq.Label(),
				Variable: name,
				Lag:      k,
				Index:    ix,
			})
		})
	}
	return model.Present(s.read(name, model.At(t, r)))
}
