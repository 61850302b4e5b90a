// Package server provides HTTP routing, middleware, and the OAuth2 callback used by `auth login --provider`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// PocketBase issues the provider auth URL, a state value and a PKCE code verifier from its auth-methods
// endpoint. The CLI opens the auth URL with a redirect to this server; [OAuthHandler] checks the state,
// hands the code to a [CodeExchanger] (auth-with-oauth2) and sends the session through a channel.
//
// It only processes one callback to prevent replay attacks.
package server
