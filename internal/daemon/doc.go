// Package daemon coordinates the long-running postroll process.
//
// It wires the pipeline orchestrator to its trigger surfaces (the HTTP API
// and the optional AMQP intake) into a single lifecycle with flock-based
// locking to prevent multiple instances. Jobs submitted over HTTP run in the
// background under the daemon context; Stop cancels them and waits for each
// to record its terminal status.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
