// Package tree defines the launcher's configuration model: a strict
// hierarchy of keyed groups and actions, plus its canonical JSON codec.
//
// Two properties matter for everything built on top:
//
//   - Identity is transient. Every node carries a process-lifetime UUID used
//     for UI addressing; it is never persisted and is regenerated on every
//     decode. Equality and change detection are structural only.
//
//   - Encoding is canonical. Encoding the same tree twice produces
//     byte-identical output (sorted keys, stable indentation, NFC-normalized
//     strings, empty optional fields omitted). The store's checksum-based
//     conflict detection depends on this.
//
// Node positions are addressed by Path, the sequence of child indices from
// the root. Paths are the join key between tree nodes and validation
// results; any structural edit invalidates paths at or below the change.
package tree
