package frontend

import "github.com/roach88/waterline/internal/ir"

// Expr is a handle to a term in the program being recorded.
// The zero Expr is invalid.
type Expr struct {
	scope *Scope
	id    ir.TermID
}

// ID returns the underlying term ID.
func (e Expr) ID() ir.TermID {
	return e.id
}

// Term returns the underlying term.
func (e Expr) Term() *ir.Term {
	if e.scope == nil {
		return nil
	}
	return e.scope.prog.Term(e.id)
}

func (e Expr) binary(op ir.Op, x any, reversed bool) (Expr, error) {
	if e.scope == nil {
		return Expr{}, ir.NewContextError("zero Expr used in %s", op)
	}
	if err := e.scope.check(); err != nil {
		return Expr{}, err
	}
	other, err := e.scope.operand(x)
	if err != nil {
		return Expr{}, err
	}
	l, r := e.id, other
	if reversed {
		l, r = r, l
	}
	return Expr{scope: e.scope, id: e.scope.prog.NewOp(op, l, r)}, nil
}

func (e Expr) unary(op ir.Op) (Expr, error) {
	if e.scope == nil {
		return Expr{}, ir.NewContextError("zero Expr used in %s", op)
	}
	if err := e.scope.check(); err != nil {
		return Expr{}, err
	}
	return Expr{scope: e.scope, id: e.scope.prog.NewOp(op, e.id)}, nil
}

// Add returns e + x.
func (e Expr) Add(x any) (Expr, error) { return e.binary(ir.OpAdd, x, false) }

// Sub returns e - x.
func (e Expr) Sub(x any) (Expr, error) { return e.binary(ir.OpSub, x, false) }

// SubFrom returns x - e.
func (e Expr) SubFrom(x any) (Expr, error) { return e.binary(ir.OpSub, x, true) }

// Mul returns e * x.
func (e Expr) Mul(x any) (Expr, error) { return e.binary(ir.OpMul, x, false) }

// Neg returns -e.
func (e Expr) Neg() (Expr, error) { return e.unary(ir.OpNegate) }

// Pow returns e raised to n as a left-leaning chain of multiplications.
// n must be at least 1.
func (e Expr) Pow(n int) (Expr, error) {
	if n < 1 {
		return Expr{}, ir.NewDomainError("exponent must be at least 1, got %d", n)
	}
	result := e
	for i := 1; i < n; i++ {
		var err error
		if result, err = result.Mul(e); err != nil {
			return Expr{}, err
		}
	}
	return result, nil
}

// RotateLeft cyclically rotates slots left by k: out[i] = in[(i+k) mod width].
func (e Expr) RotateLeft(k int) (Expr, error) {
	return e.rotate(ir.OpRotateLeft, k)
}

// RotateRight cyclically rotates slots right by k.
func (e Expr) RotateRight(k int) (Expr, error) {
	return e.rotate(ir.OpRotateRight, k)
}

func (e Expr) rotate(op ir.Op, k int) (Expr, error) {
	r, err := e.unary(op)
	if err != nil {
		return Expr{}, err
	}
	n := e.scope.prog.VecSize()
	r.Term().Rotation = ((k % n) + n) % n
	return r, nil
}
