package ir

import "fmt"

// Op is the operation performed by a Term.
type Op uint8

const (
	OpUndef Op = iota
	OpInput
	OpOutput
	OpConstant
	OpNegate
	OpAdd
	OpSub
	OpMul
	OpRotateLeft
	OpRotateRight
	// The ops below are inserted by the compiler and never recorded by users.
	OpRelinearize
	OpModSwitch
	OpRescale
	OpEncode
)

var opNames = [...]string{
	OpUndef:       "undef",
	OpInput:       "input",
	OpOutput:      "output",
	OpConstant:    "constant",
	OpNegate:      "negate",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpRotateLeft:  "rotate_left",
	OpRotateRight: "rotate_right",
	OpRelinearize: "relinearize",
	OpModSwitch:   "mod_switch",
	OpRescale:     "rescale",
	OpEncode:      "encode",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// ParseOp is the inverse of Op.String.
func ParseOp(s string) (Op, error) {
	for i, name := range opNames {
		if name == s && Op(i) != OpUndef {
			return Op(i), nil
		}
	}
	return OpUndef, fmt.Errorf("unknown op %q", s)
}

// IsRotation reports whether o rotates slots.
func (o Op) IsRotation() bool {
	return o == OpRotateLeft || o == OpRotateRight
}

// IsAdditive reports whether o is Add or Sub.
func (o Op) IsAdditive() bool {
	return o == OpAdd || o == OpSub
}

// IsReduction reports whether o is associative and may be rebalanced.
func (o Op) IsReduction() bool {
	return o == OpAdd || o == OpMul
}

// IsCompilerInserted reports whether o only appears after compilation.
func (o Op) IsCompilerInserted() bool {
	return o >= OpRelinearize
}

// Arity returns the operand count the op requires once the graph is binary.
// Reductions may temporarily carry more operands during balancing.
func (o Op) Arity() int {
	switch o {
	case OpInput, OpConstant:
		return 0
	case OpAdd, OpSub, OpMul:
		return 2
	default:
		return 1
	}
}

// Type is the representation of a value at runtime.
type Type uint8

const (
	TypeUndef Type = iota
	// TypeCipher is an encrypted value.
	TypeCipher
	// TypeRaw is an unencoded plaintext vector (unencrypted inputs, constants).
	TypeRaw
	// TypePlain is an encoded, unencrypted plaintext.
	TypePlain
)

var typeNames = [...]string{
	TypeUndef:  "undef",
	TypeCipher: "cipher",
	TypeRaw:    "raw",
	TypePlain:  "plain",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return TypeUndef, fmt.Errorf("unknown type %q", s)
}
