// Package event defines the test-run lifecycle contract shared by every
// kernspec formatter.
//
// A Reporter receives raw results from an event source (see package gotest),
// keeps the bookkeeping needed for end-of-run summaries and dispatches typed
// notifications to registered Listeners:
//   - ExamplePassed / ExampleFailed: one finished example
//   - GroupStarted / GroupFinished: a package, or a test that runs subtests
//   - DumpSummary: run duration and totals
//   - DumpFailures: every failed example in the order it finished
package event
