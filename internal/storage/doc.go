// Package storage provides the small key-value blob store behind the
// notification settings record.
//
// Two drivers exist: a dependency-free file snapshot and an optional SQLite
// backend (build with -tags sqlite). Open returns (nil, nil) when storage is
// disabled; callers treat a nil Store as "in-memory only".
package storage
