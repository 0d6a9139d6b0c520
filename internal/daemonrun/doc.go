// Package daemonrun is the composition root for long-running and one-shot
// invocations: it opens the shared record store, blob store, progress
// tracker, and task runner, and wires them into the pipeline orchestrator.
package daemonrun
