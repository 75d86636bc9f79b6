// Package ir provides the term graph that every compiler stage reads and rewrites.
//
// A Program owns an append-only arena of Terms. Terms reference each other by
// TermID, never by pointer, so a term shared by several consumers is stored once
// and the graph stays a DAG. Each term also records its consumers (uses) as a
// multiset, which lets rewrites redirect edges in both directions.
//
// Key constraints:
//   - Every program has a power-of-two vector width; all values occupy exactly that many slots
//   - Input and output names are unique within a program
//   - A frozen program rejects mutation; compilation always works on a Clone
//   - ir imports no other internal package
package ir
