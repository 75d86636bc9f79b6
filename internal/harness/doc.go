// Package harness runs compilation scenarios end to end.
//
// A scenario names a CUE program, a compiler configuration and optionally
// input vectors. Run compiles the program, checks that the compiled program
// computes what the source computes under the reference evaluator, optionally
// repeats the check under real encryption, and compares the selected
// parameters against the scenario's expectations.
//
// Every run records its compilation and runs in a fresh in-memory registry
// with fixed run ids, so two runs of the same scenario produce identical
// results.
//
// # Golden files
//
// RunWithGolden snapshots the selected parameters and the signature as
// canonical JSON and compares them against testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
