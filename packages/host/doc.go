// Package host reports identifying information about the machine a test run
// executes on: the kernel release (uname -r) used to tag every output line,
// and the full platform description (uname -a) printed with the summary.
//
// Values come from a Provider. CommandProvider shells out to the host;
// Static, Override and Cached let callers pin or share values without
// touching process-wide state.
package host
