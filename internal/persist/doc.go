// Package persist stores graphs in a SQLite save file.
//
// Every Save appends a revision. A revision holds one row per Node with
// its literal value or function name, canvas position, connection,
// bindings and options, plus the names exported to the output sink.
// Load reads the latest revision of a graph back into a document and
// rebuilds it in two passes, so References may point at Nodes stored
// later in the revision.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Revisions are ordered by a per-graph seq, never by timestamps. Bindings,
// literals and options are stored as canonical JSON, and each revision
// carries a content hash so saving an unchanged graph is a no-op.
package persist
