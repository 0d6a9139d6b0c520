// Package services defines shared utilities consumed by the pipeline
// components and the orchestrator.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, job IDs, subtask names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that tag every failure
//     with one kind (fetch, probe, ffmpeg, filesystem, upload, database,
//     rename) so the orchestrator can classify it without string matching.
//
// Components return tagged errors and never retry; only the orchestrator turns
// an error into a terminal video status.
package services
