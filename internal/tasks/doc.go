// Package tasks runs the client-side workflows on top of [services.Service] and the [cache.Store].
//
// # Queries and Mutations
//
// [Queries] are cached reads, one per [cache.Key]. [Mutations] are writes: each one calls the backend,
// routes a failure through the [ErrorHandler] and, on success, invalidates the keys whose data changed.
// Adding episodes invalidates every podcast's items and the usage record; creating jobs invalidates the
// jobs list and usage; webhook changes invalidate the webhook and its events.
//
// # Polling
//
// A [Poller] refetches a collection while any record is not terminal. After every fetch the decision is
// recomputed from the latest payload with [NextDelay]:
//
//	Idle -> Fetching -> Idle                  (empty or fully settled)
//	Idle -> Fetching -> Scheduled -> Fetching (something in progress)
//
// An idle poller wakes when a mutation invalidates its key. Fetches of one poller never overlap.
// Failed fetches are reported and retried at the same interval.
//
// # Errors
//
// [ErrorHandler.Handle] emits exactly one "An error occurred" notice per failure through a [Notifier]
// and logs it. Cancelled and superseded requests are silent (see [IsExpectedCancellation]).
//
// # Progress Reporting
//
// Pollers and [Queries.BulkDownload] send [ProgressUpdate] values on an optional channel. Sends use
// select with default so a slow reader never blocks the work.
package tasks
