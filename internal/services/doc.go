// Package services defines the [Catalog] interface for the remote music service and implements it for Spotify.
//
// # Catalog
//
// The pipeline needs four capabilities from the service: identify the current user, create a playlist,
// search for tracks, and append at most [MaxAppendItems] tracks to a playlist per call.
// Tests substitute an in-memory fake.
//
// # Spotify Implementation
//
// [SpotifyCatalog] wraps github.com/zmb3/spotify/v2. Requests pass through a client-side
// [golang.org/x/time/rate.Limiter] and the spotify client retries 429 responses after Retry-After.
//
// # Credentials
//
// [SpotifyProvider] validates [Credentials] before anything touches the network, then reuses the token
// cached by [TokenStore] or runs its [Authorizer]. The returned catalog's HTTP client refreshes expired
// tokens automatically and writes each refreshed token back to the store.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ConfigurationError] : credentials missing
//   - [shared.ErrNotAuthenticated] : no cached token and no authorizer, or a 401 from the API
//   - [shared.ErrAuthFailed] : the interactive authorization failed
//   - [shared.ErrAPIRequest] : any other failed API call
package services
