// Package logs reads the daemon's log files for `postroll logs`.
//
// Last returns the trailing lines of a file with bounded memory; Follow polls
// for appended lines from an offset and restarts from the top when the file
// is truncated or replaced.
package logs
