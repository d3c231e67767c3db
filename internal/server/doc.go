// Package server provides HTTP routing, middleware, and the OAuth callback flow used by `rankify auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] logs method, path and status without the query string.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// # Browser Flow
//
// [BrowserFlow] binds a temporary server to the configured host and port, opens the authorization URL,
// and shuts the server down once a token arrives, the flow times out, or the context is canceled.
// Its Authorize method is handed to the Spotify provider as the interactive authorizer.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
