// Package notify implements the notification policy and delivery queue.
//
// Alerts enter through Enqueue (fire-and-forget, drained FIFO by a single
// loop) or Schedule (synchronous decision). Per alert the service applies
// the permission state, the user's settings flags, quiet hours and the
// rolling one-hour rate cap; CRITICAL alerts bypass all of it. A delivered
// alert is annotated in place (NotificationSent, NotificationScheduledAt),
// appended to the send ledger that backs the rate limit, and recorded in a
// bounded history kept for display.
//
// Policy filtering is an expected, quiet outcome. Gateway and persistence
// faults are wrapped with the failing operation and never corrupt in-memory
// state: settings updates are all-or-nothing and alert flags are only set
// after a confirmed gateway schedule.
package notify
