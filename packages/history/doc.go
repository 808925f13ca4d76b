// Package history records test runs per kernel release in a SQLite
// database, so results from different kernels can be compared over time.
package history
