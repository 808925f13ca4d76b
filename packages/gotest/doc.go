// Package gotest turns `go test -json` output into kernspec lifecycle events.
//
// Mapping:
//   - each package is a group, started on its first event and finished on
//     its package-level pass, fail or skip
//   - each test is an example; a test that runs subtests is also a nested
//     group around them
//   - skipped tests are pending examples
//   - the output of a failed test, minus test2json framing lines, becomes
//     the example's exception message
//
// Decoder reads events from a stream, Translator feeds them to an
// event.Reporter and Follow tails a file that is still being written.
package gotest
