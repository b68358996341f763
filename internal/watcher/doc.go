// Package watcher observes the workspace tree and turns raw filesystem
// events into validated, coalesced batches of sync work.
//
// # Pipeline
//
// A disk edit travels through four stages before it reaches the importers:
//
//	fsnotify event -> classify (pathroute) -> debounce -> batch window -> flush
//
// Classification drops temp files, wrong extensions, and paths outside the
// recognized workspace shapes. Debouncing suppresses duplicate events for
// the same path within a short window, which covers editors that emit
// multiple writes per save. The batch window collects distinct changes into
// a pending map keyed by the item's target identity; later events for the
// same key overwrite earlier ones, so only the last write per identity
// survives one window. A single timer, started by the first item of the
// window, triggers one flush of the entire map.
//
// Content is read at flush time, never at event time, so the flush always
// carries the freshest bytes. Files that vanished or shrank to zero bytes
// between the event and the read are skipped silently - transient races
// with the editor are expected, not errors.
//
// # Pause/resume
//
// The exporter writes many files at once. Without coordination the watcher
// would reinterpret those writes as user edits and reimport them, possibly
// mid-write. Pause suspends the event loop before each item; Resume lifts
// it. Events arriving while paused are not dropped - the fsnotify channel
// holds them and they are processed after Resume. Both calls are idempotent.
// Pause has no timeout: the resume obligation belongs to the export call
// site, which must resume in a deferred block.
//
// # Ordering
//
// Within one window only the last item per identity is honored, and no
// ordering across identities is provided - items are independent. Across
// windows, flushes are strictly sequential.
package watcher
