// Package output provides formatters that render test-run events.
//
// Supported formats:
//   - Release: host-tagged group and summary lines, no per-example output
//   - Progress: the terse dot/F stream with a numbered failure list
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Every formatter implements event.Listener. Accumulating formats (JSON,
// JUnit, TAP) write their document when the summary is dumped.
package output
