// Package activecache holds the materialized set of meetings that are
// currently live, together with the invited and joined participant sets of
// each one.
//
// Every entry is keyed by meeting id. Stores guarantee that a single
// mutation (Insert, Update, Delete) on one key is atomic; callers that need
// to serialize a read-check-write sequence across several calls use a
// KeyedMutex scoped to the same id.
package activecache
