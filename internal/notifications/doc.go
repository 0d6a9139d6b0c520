// Package notifications pushes job outcomes to an ntfy topic.
//
// Failures are always published when a topic is configured; successes only
// when notify_success is set. Without a topic the service is a no-op, so
// callers never need to check configuration themselves. Delivery is
// best-effort: callers log errors and move on.
package notifications
