// Package handoff implements the registry slot between implementor index producers
// and the index consumer.
//
// A Handoff starts in the Buffering phase. Producers call Submit in any order and
// at any time; while no consumer is attached, each module's records are kept in
// insertion order (duplicates resolved by the configured DuplicatePolicy). The
// first call to Attach atomically switches the Handoff to the Forwarding phase,
// replays the buffered modules into the consumer's intake in insertion order, and
// drops the buffer. From then on Submit delivers straight to the intake. A second
// Attach fails with ErrDoubleAttachment and leaves the first consumer in place.
//
// # Lifecycle
//
// One Handoff is created per process by the command that owns the build (see
// cmd/), before any producer runs, and is passed to producers and the consumer
// explicitly. It is never reachable through a package-level variable. It holds no
// external resources, so there is nothing to close; it is discarded with the
// process. If no consumer ever attaches, buffered data simply stays in memory.
//
// # Delivery guarantees
//
// Phase changes and buffer writes are serialized by a mutex, so no Submit observes
// a half-finished transition. Calls into the intake are serialized by a second
// mutex held for the whole replay, so a live delivery never overtakes a replayed
// one. The intake must not call back into the same Handoff.
package handoff
