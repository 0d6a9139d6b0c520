// Package api serves the HTTP trigger and status surface.
//
// # Routes
//
//	POST /api/jobs                   accept a pipeline request and run it asynchronously
//	GET  /api/videos                 list video records, optionally filtered by ?status=
//	GET  /api/videos/{id}            one video record with artifact URLs
//	GET  /api/videos/{id}/progress   live job and subtask state
//	GET  /api/health                 preflight results and dependency availability
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Job requests keep the snake_case invocation message shape shared with the
// AMQP intake so producers can post the same body to either surface.
package api
