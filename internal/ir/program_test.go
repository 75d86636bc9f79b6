package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSquare(t *testing.T) (*Program, TermID, TermID) {
	t.Helper()
	p, err := NewProgram("sq", 8)
	require.NoError(t, err)
	x, err := p.NewInput("x", TypeCipher)
	require.NoError(t, err)
	y := p.NewOp(OpMul, x, x)
	_, err = p.NewOutput("y", y)
	require.NoError(t, err)
	return p, x, y
}

func TestNewProgramRejectsBadWidth(t *testing.T) {
	for _, n := range []int{0, -4, 3, 12} {
		_, err := NewProgram("p", n)
		assert.True(t, IsDomainError(err), "width %d", n)
	}
	_, err := NewProgram("p", 1)
	assert.NoError(t, err)
}

func TestNameConflicts(t *testing.T) {
	p, x, _ := newSquare(t)

	_, err := p.NewInput("x", TypeRaw)
	assert.True(t, IsNameConflictError(err))

	_, err = p.NewOutput("y", x)
	assert.True(t, IsNameConflictError(err))

	_, err = p.NewInput("z", TypePlain)
	assert.True(t, IsDomainError(err))
}

func TestUsesAreAMultiset(t *testing.T) {
	p, x, y := newSquare(t)

	assert.Equal(t, []TermID{y, y}, p.Term(x).Uses())
	assert.Equal(t, []TermID{x, x}, p.Term(y).Operands())
}

func TestReplaceOperandKeepsEdgesConsistent(t *testing.T) {
	p, x, y := newSquare(t)
	r := p.NewRescale(x, 60)

	p.ReplaceOperand(y, x, r)

	assert.Equal(t, []TermID{r, r}, p.Term(y).Operands())
	assert.Equal(t, []TermID{r}, p.Term(x).Uses())
	assert.Equal(t, []TermID{y, y}, p.Term(r).Uses())
}

func TestReplaceOtherUsesWithWrapsTerm(t *testing.T) {
	p, _, y := newSquare(t)
	out, _ := p.Output("y")
	r := p.NewRescale(y, 60)

	p.ReplaceOtherUsesWith(y, r)

	assert.Equal(t, []TermID{r}, p.Term(y).Uses())
	assert.Equal(t, []TermID{out.ID}, p.Term(r).Uses())
	assert.Equal(t, r, out.Operand(0))
}

func TestEraseAndSetOperands(t *testing.T) {
	p, x, y := newSquare(t)

	assert.True(t, p.EraseOperand(y, x))
	assert.Equal(t, []TermID{x}, p.Term(y).Operands())
	assert.Equal(t, []TermID{y}, p.Term(x).Uses())
	assert.False(t, p.EraseOperand(y, y))

	c := p.NewConstant(Uniform(2))
	p.SetOperands(y, c, x, x)
	assert.Equal(t, []TermID{c, x, x}, p.Term(y).Operands())
	assert.Equal(t, []TermID{y, y}, p.Term(x).Uses())
	assert.Equal(t, []TermID{y}, p.Term(c).Uses())
}

func TestCollectRemovesUnreachableTerms(t *testing.T) {
	p, x, y := newSquare(t)
	unusedInput, err := p.NewInput("unused", TypeRaw)
	require.NoError(t, err)
	neg := p.NewOp(OpNegate, x)
	p.NewOp(OpAdd, neg, y)

	assert.Equal(t, 2, p.Collect())
	assert.True(t, p.Term(neg).Dead())
	assert.False(t, p.Term(unusedInput).Dead())
	assert.Equal(t, []TermID{y, y}, p.Term(x).Uses())
	assert.Len(t, p.Term(y).Uses(), 1)

	sources := p.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, x, sources[0].ID)
	assert.Equal(t, 0, p.Collect())
}

func TestTopoOrderFollowsDependencies(t *testing.T) {
	p, x, y := newSquare(t)
	// Insert a term whose ID is larger than its consumer's.
	r := p.NewRescale(x, 60)
	p.ReplaceOperand(y, x, r)

	order := p.TopoOrder()
	pos := make(map[TermID]int)
	for i, term := range order {
		pos[term.ID] = i
	}
	for _, term := range order {
		for _, o := range term.Operands() {
			assert.Less(t, pos[o], pos[term.ID], "%s before %s", o, term.ID)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p, x, y := newSquare(t)
	p.Freeze()

	c := p.Clone()
	assert.False(t, c.Frozen())
	c.Term(y).Scale = 99
	c.ReplaceOperand(y, x, c.NewRescale(x, 60))

	assert.Equal(t, 0, p.Term(y).Scale)
	assert.Equal(t, []TermID{x, x}, p.Term(y).Operands())
}

func TestFrozenProgramPanicsOnMutation(t *testing.T) {
	p, x, _ := newSquare(t)
	p.Freeze()

	assert.Panics(t, func() { p.NewOp(OpNegate, x) })
	assert.Panics(t, func() { p.Collect() })
}

func TestCompactRenumbersInTopoOrder(t *testing.T) {
	p, x, y := newSquare(t)
	r := p.NewRescale(x, 60)
	p.ReplaceOperand(y, x, r)
	p.Collect()

	c := p.Compact()
	require.Equal(t, 4, c.Len())
	for i, term := range c.TopoOrder() {
		assert.Equal(t, TermID(i+1), term.ID)
	}
	out, ok := c.Output("y")
	require.True(t, ok)
	assert.Equal(t, OpMul, c.Term(out.Operand(0)).Op)
}

func TestDump(t *testing.T) {
	p, x, y := newSquare(t)
	p.Term(x).Scale = 30
	p.Term(y).Type = TypeCipher
	p.Term(y).Scale = 60

	expected := `program "sq" vec_size=8
t1 = input "x" : cipher scale=30 level=0 encode_level=0
t2 = mul t1 t1 : cipher scale=60 level=0
t3 = output "y" t2 : undef scale=0 level=0 range=0
`
	assert.Equal(t, expected, p.Dump())
}

func TestProgramValueRoundTrip(t *testing.T) {
	p, x, y := newSquare(t)
	c, err := Dense([]float64{0.5, -1.25})
	require.NoError(t, err)
	rot := p.NewOp(OpRotateLeft, y)
	p.Term(rot).Rotation = 3
	sum := p.NewOp(OpAdd, rot, p.NewConstant(c))
	_, err = p.NewOutput("z", sum)
	require.NoError(t, err)
	p.Term(x).Scale = 40

	data, err := MarshalCanonical(p.ToValue())
	require.NoError(t, err)

	obj, err := UnmarshalObject(data)
	require.NoError(t, err)
	loaded, err := ProgramFromValue(obj)
	require.NoError(t, err)

	again, err := MarshalCanonical(loaded.ToValue())
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
	assert.Equal(t, p.Compact().Dump(), loaded.Dump())
}

func TestProgramFromValueRejectsForwardOperands(t *testing.T) {
	obj := Object{
		"name":     Str("bad"),
		"vec_size": Int(4),
		"terms": Array{Object{
			"id": Int(1), "op": Str("negate"), "type": Str("cipher"),
			"scale": Int(0), "level": Int(0), "encode_level": Int(0),
			"operands": Ints([]int{2}),
		}},
	}
	_, err := ProgramFromValue(obj)
	assert.True(t, IsValidationError(err))
}

func TestConstantExpand(t *testing.T) {
	c, err := Dense([]float64{1, 2})
	require.NoError(t, err)

	got, err := c.Expand(8)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1, 2, 1, 2, 1, 2}, got)

	c3, err := Dense([]float64{1, 2, 3})
	require.NoError(t, err)
	_, err = c3.Expand(8)
	assert.True(t, IsDomainError(err))

	_, err = Dense(nil)
	assert.True(t, IsDomainError(err))
}

func TestParametersAndSignatureRoundTrip(t *testing.T) {
	params := Parameters{
		PrimeBits:         []int{60, 20, 60, 60},
		Rotations:         []int{-1, 2},
		PolyModulusDegree: 8192,
		SecurityLevel:     128,
	}
	gotParams, err := ParametersFromValue(params.ToValue())
	require.NoError(t, err)
	if diff := cmp.Diff(params, gotParams); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	sig := Signature{
		VecSize: 8,
		Inputs:  map[string]EncodingInfo{"x": {Type: TypeCipher, Scale: 60, Level: 0}},
		Outputs: map[string]OutputInfo{"y": {Scale: 60, Range: 20}},
	}
	gotSig, err := SignatureFromValue(sig.ToValue())
	require.NoError(t, err)
	if diff := cmp.Diff(sig, gotSig); diff != "" {
		t.Errorf("signature mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewInconsistentError(TermID(7), "scale mismatch")
	assert.Equal(t, "INCONSISTENT: scale mismatch (term=t7)", err.Error())
	assert.Equal(t, ErrCodeInconsistent, CodeOf(err))

	wrapped := NewUnsupportedSecurityLevelError(100, false)
	assert.True(t, IsUnsupportedSecurityLevelError(wrapped))
	assert.Equal(t, "100", wrapped.Details["security_level"])
}
