/*
Package events provides an in-memory publish/subscribe broker for the
COB layer's own lifecycle events: object creation, entry append, redaction,
and node-handle connectivity changes.

Distribution is non-blocking: a subscriber whose buffered channel is full
silently misses the event rather than stalling the broadcaster. Publish
itself waits while the broker's internal event queue is full, until the
broker is stopped. This
suits best-effort consumers like a CLI follow command; a durability-
sensitive consumer should read the underlying store directly instead of
relying on the event stream.
*/
package events
