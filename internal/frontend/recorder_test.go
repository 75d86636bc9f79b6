package frontend

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waterline/internal/ir"
)

func mustProgram(t *testing.T, name string, vecSize int) *ir.Program {
	t.Helper()
	p, err := ir.NewProgram(name, vecSize)
	require.NoError(t, err)
	return p
}

func TestRecordFreezesOnSuccess(t *testing.T) {
	p := mustProgram(t, "sq", 8)
	rec := NewRecorder()

	err := rec.Record(p, func(s *Scope) error {
		assert.Same(t, p, rec.Active())
		x, err := s.Input("x", true)
		if err != nil {
			return err
		}
		y, err := x.Mul(x)
		if err != nil {
			return err
		}
		return s.Output("y", y)
	})
	require.NoError(t, err)

	assert.Nil(t, rec.Active())
	assert.True(t, p.Frozen())
	err = rec.Record(p, func(*Scope) error { return nil })
	assert.True(t, ir.IsContextError(err))
}

func TestRecordRejectsNestedActivation(t *testing.T) {
	rec := NewRecorder()
	outer := mustProgram(t, "outer", 4)
	inner := mustProgram(t, "inner", 4)

	err := rec.Record(outer, func(*Scope) error {
		return rec.Record(inner, func(*Scope) error { return nil })
	})
	assert.True(t, ir.IsContextError(err))
	assert.Nil(t, rec.Active())
}

func TestRecordDeactivatesOnErrorAndPanic(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("boom")

	err := rec.Record(mustProgram(t, "a", 4), func(*Scope) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, rec.Active())

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = rec.Record(mustProgram(t, "b", 4), func(*Scope) error { panic("kaboom") })
	})
	assert.Nil(t, rec.Active())

	// The recorder is usable again.
	assert.NoError(t, rec.Record(mustProgram(t, "c", 4), func(*Scope) error { return nil }))
}

func TestScopeUnusableAfterRecord(t *testing.T) {
	var leaked *Scope
	var x Expr
	_, err := NewProgram("p", 4, func(s *Scope) error {
		leaked = s
		var err error
		x, err = s.Input("x", true)
		return err
	})
	require.NoError(t, err)

	_, err = leaked.Input("z", true)
	assert.True(t, ir.IsContextError(err))
	_, err = x.Neg()
	assert.True(t, ir.IsContextError(err))
}

func TestExprFromOtherProgramIsRejected(t *testing.T) {
	var foreign Expr
	_, err := NewProgram("a", 4, func(s *Scope) error {
		var err error
		foreign, err = s.Input("x", true)
		return err
	})
	require.NoError(t, err)

	_, err = NewProgram("b", 4, func(s *Scope) error {
		y, err := s.Input("y", true)
		if err != nil {
			return err
		}
		_, err = y.Add(foreign)
		return err
	})
	assert.True(t, ir.IsContextError(err))
}

func TestNameConflicts(t *testing.T) {
	_, err := NewProgram("p", 4, func(s *Scope) error {
		if _, err := s.Input("x", true); err != nil {
			return err
		}
		_, err := s.Input("x", false)
		return err
	})
	assert.True(t, ir.IsNameConflictError(err))

	_, err = NewProgram("p", 4, func(s *Scope) error {
		x, err := s.Input("x", true)
		if err != nil {
			return err
		}
		if err := s.Output("y", x); err != nil {
			return err
		}
		return s.Output("y", x)
	})
	assert.True(t, ir.IsNameConflictError(err))
}

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(s *Scope, x Expr) error
	}{
		{"pow zero", func(_ *Scope, x Expr) error { _, err := x.Pow(0); return err }},
		{"pow negative", func(_ *Scope, x Expr) error { _, err := x.Pow(-2); return err }},
		{"bad literal type", func(_ *Scope, x Expr) error { _, err := x.Add("three"); return err }},
		{"empty list", func(_ *Scope, x Expr) error { _, err := x.Mul([]float64{}); return err }},
		{"non-dividing list", func(_ *Scope, x Expr) error { _, err := x.Mul([]int{1, 2, 3}); return err }},
		{"zero scale", func(s *Scope, _ Expr) error { return s.SetInputScales(0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProgram("p", 8, func(s *Scope) error {
				x, err := s.Input("x", true)
				if err != nil {
					return err
				}
				return tt.fn(s, x)
			})
			assert.True(t, ir.IsDomainError(err), "got %v", err)
		})
	}
}

func TestPowBuildsMultiplicationChain(t *testing.T) {
	p, err := NewProgram("cube", 4, func(s *Scope) error {
		x, err := s.Input("x", true)
		if err != nil {
			return err
		}
		y, err := x.Pow(3)
		if err != nil {
			return err
		}
		return s.Output("y", y)
	})
	require.NoError(t, err)

	muls := 0
	for _, term := range p.Terms() {
		if term.Op == ir.OpMul {
			muls++
		}
	}
	assert.Equal(t, 2, muls)
}

func TestRotationIsReducedModuloWidth(t *testing.T) {
	p, err := NewProgram("rot", 8, func(s *Scope) error {
		x, err := s.Input("x", true)
		if err != nil {
			return err
		}
		l, err := x.RotateLeft(10)
		if err != nil {
			return err
		}
		r, err := x.RotateRight(-3)
		if err != nil {
			return err
		}
		if err := s.Output("l", l); err != nil {
			return err
		}
		return s.Output("r", r)
	})
	require.NoError(t, err)

	l, _ := p.Output("l")
	r, _ := p.Output("r")
	assert.Equal(t, 2, p.Term(l.Operand(0)).Rotation)
	assert.Equal(t, 5, p.Term(r.Operand(0)).Rotation)
}

func TestScalesAndRanges(t *testing.T) {
	p, err := NewProgram("p", 4, func(s *Scope) error {
		x, err := s.Input("x", true)
		if err != nil {
			return err
		}
		if err := s.SetInputScales(30); err != nil {
			return err
		}
		y, err := x.Mul(2)
		if err != nil {
			return err
		}
		if err := s.Output("y", y); err != nil {
			return err
		}
		if err := s.SetOutputRanges(20); err != nil {
			return err
		}
		return s.SetOutputRange("y", 25)
	})
	require.NoError(t, err)

	for _, src := range p.Sources() {
		assert.Equal(t, 30, src.Scale, "source %s", src.ID)
	}
	y, _ := p.Output("y")
	assert.Equal(t, 25, y.Range)
}

func TestIndependentRecordersRunConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = NewProgram("p", 16, func(s *Scope) error {
				x, err := s.Input("x", true)
				if err != nil {
					return err
				}
				sum, err := HorizontalSum(x)
				if err != nil {
					return err
				}
				return s.Output("y", sum)
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
