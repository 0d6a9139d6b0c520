// Package main hosts the postroll CLI entrypoint and command graph.
//
// `serve` runs the daemon (HTTP API plus optional AMQP intake). `run`
// processes a single video in the foreground and prints the job. The `video`
// commands read and seed the record store directly, `deps` reports preflight
// state, and `config` scaffolds the configuration file.
package main
