// Package models defines the persistent entities and repository interfaces for run history.
//
// [Run] records one pipeline invocation: the playlist it created, how many titles were requested,
// resolved and added, and when it ran. Each run carries its per-title [RunItem] outcomes in input order
// and any [BatchFailure] from the append phase.
//
// All persistent entities implement the Model interface providing ID, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
