package ir

import "fmt"

// TermID identifies a term inside its Program's arena.
// The zero value is reserved as the invalid sentinel.
type TermID uint32

// NoTerm is the invalid TermID.
const NoTerm TermID = 0

// IsValid reports whether id refers to an arena slot.
func (id TermID) IsValid() bool {
	return id != NoTerm
}

func (id TermID) String() string {
	if !id.IsValid() {
		return "t?"
	}
	return fmt.Sprintf("t%d", uint32(id))
}

// index converts the ID to its arena slot.
func (id TermID) index() int {
	return int(id) - 1
}
