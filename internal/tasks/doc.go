// Package tasks turns a ranking file into a populated playlist with real-time progress reporting.
//
// # Core Operations
//
//  1. [Resolver] : one catalog search per ranked title
//     - Normalizes the title and scopes the query to the configured artist
//     - Trusts the catalog's relevance order and takes the first result
//     - Records misses and search errors as unresolved outcomes; never aborts
//     - [Resolver.ResolveAll] runs searches on a bounded errgroup and keeps input order
//
//  2. [Populator] : appends resolved tracks in batches of at most 100
//     - Batches are submitted sequentially, in order
//     - A failed batch is recorded and the next one is still attempted
//
//  3. [Pipeline] : validate, parse, authenticate, create the playlist, resolve, populate
//     - Configuration and input errors abort before any remote call
//     - Returns a [Summary] even when nothing resolved
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Sends block until the receiver takes
// the update or the context is canceled. Updates with Failed set are failure or warning lines.
//
// # Run History
//
// The optional [RunRecorder] interface persists each [Summary] (repositories.RunRecorderAdapter).
// Recording errors are logged and never fail the run.
package tasks
