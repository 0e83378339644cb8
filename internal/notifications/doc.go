// Package notifications delivers batch events via ntfy.
//
// NewService publishes to the topic configured under [notifications] and
// degrades to a no-op when no topic is set. Batch completions below
// min_units, or with their event class disabled, are dropped silently.
package notifications
