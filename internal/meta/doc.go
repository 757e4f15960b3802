// Package meta resolves meta identifiers into model.Meta values and caches
// them.
//
// Parse and FromRaw are pure: they validate an identifier or decode a
// definition row without I/O. Cache wraps a Getter with a TTL cache,
// deduplicates concurrent origin fetches per key, and resolves master and
// multi (composite) references transitively so every level is cached.
package meta
