// Package logx wraps zerolog behind a small Logger/Field API.
//
// The Service variant supports hot reload: loggers derived from a Service
// pick up new sinks and levels on the next call after Apply(), without
// re-wiring the components that hold them.
package logx
