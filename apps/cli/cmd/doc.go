// Package cmd implements the kernspec command line interface.
//
// Commands:
//   - run: render a go test -json stream from a file or stdin
//   - test: run go test -json and render its output live
//   - history: list runs recorded per kernel release
//   - init: write a default .kernspec.yaml
//   - version: print build information
package cmd
