package frontend

import "github.com/roach88/waterline/internal/ir"

// HorizontalSum sums all slots of x. The total is replicated in every slot
// of the result, using log2(width) rotations.
func HorizontalSum(x Expr) (Expr, error) {
	if err := x.scope.check(); err != nil {
		return Expr{}, err
	}
	for i := 1; i < x.scope.VecSize(); i <<= 1 {
		rotated, err := x.RotateLeft(i)
		if err != nil {
			return Expr{}, err
		}
		if x, err = x.Add(rotated); err != nil {
			return Expr{}, err
		}
	}
	return x, nil
}

// NewProgram records a program in a fresh Recorder. It is a convenience for
// callers that do not need to share a recorder.
func NewProgram(name string, vecSize int, fn func(*Scope) error) (*ir.Program, error) {
	p, err := ir.NewProgram(name, vecSize)
	if err != nil {
		return nil, err
	}
	if err := NewRecorder().Record(p, fn); err != nil {
		return nil, err
	}
	return p, nil
}
