// Package preflight provides readiness checks for the directories, binaries,
// and external services postroll depends on.
//
// These checks run in two contexts:
//   - serve calls RunAll at startup and logs every failure before accepting
//     work, and the HTTP health endpoint reports the same results.
//   - The CLI "postroll deps" command renders them as a table.
//
// Each service check is gated by its config toggle -- disabled features are
// skipped.
package preflight
