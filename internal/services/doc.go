// Package services defines the [Service] interface for the podcast backend and implements it on PocketBase.
//
// # PocketBase Client
//
// [PocketBase] speaks the record REST API: paged lists, single records, JSON and multipart writes,
// batch writes, custom routes through [PocketBase.Send], file URLs and the users auth endpoints.
// Every request waits on a rate limiter. The authenticated client wraps its transport in an
// [oauth2.Transport] whose token source is the local session, so the token is refreshed before it
// expires without callers noticing.
//
// # Typed API
//
// [PodcastService] maps each backend operation onto typed models. Items are decoded into the
// [models.UrlItem] / [models.UploadItem] union at this boundary.
//
// # Error Handling
//
// Non-2xx responses become [*ResponseError], which unwraps to shared sentinels:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrForbidden] : 403
//   - [shared.ErrNotFound] : 404 or an empty first-item lookup
//   - [shared.ErrAPIRequest] : anything else
//
// Requests cancelled because a newer fetch superseded them return [shared.ErrAutocancelled].
//
// # Raw Requests
//
// [APIService] sends arbitrary requests and returns the undecoded body for debugging.
package services
