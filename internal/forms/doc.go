// Package forms validates user input before any backend call.
//
// [BatchForm] is the multi-row YouTube URL entry used for podcast items and jobs. It starts with one
// empty row and appends another whenever the last row becomes a valid URL, up to its maximum.
// Empty rows are dropped at submit; malformed rows block it with [ErrInvalidURL].
//
// [AudioUploadList], [PodcastForm] and [WebhookForm] cover the other dialogs. Every failure is a
// [*FieldError] wrapping one of the package sentinels.
package forms
