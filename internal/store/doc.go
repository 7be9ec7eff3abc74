// Package store owns the authoritative configuration tree and keeps it
// synchronized with the single on-disk JSON document.
//
// The store offers two write paths. Save is synchronous and meant for
// startup or explicit "save now" actions. RequestSave is the normal path
// for UI edits: calls within the debounce window coalesce so only the last
// submitted tree is written, and all encoding and file I/O happens off the
// caller's goroutine with the outcome reported through a callback.
//
// External edits are detected optimistically: the store remembers the
// SHA-256 digest of the exact bytes it last read or wrote, and re-reads the
// file immediately before each write. A digest mismatch suspends the save
// until a Prompter picks overwrite, reload, or cancel. The window
// between check and write is not locked; two processes can still race
// there, which is an accepted limitation of the design.
//
// Save pipeline states per in-flight save:
//
//	Idle → PendingDebounce → Encoding → {Writing | AwaitingConflictChoice} → Idle
//
// A new edit during PendingDebounce restarts the window; one arriving
// during Writing schedules a follow-up cycle behind the in-flight write.
package store
