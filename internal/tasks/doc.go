// Package tasks runs multi-call library operations with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] implements two operations on top of a [services.Library]:
//
//  1. [LibraryEngine.Dump] : snapshot of the session, the first page of songs and the first page of albums
//     - Each listing is fetched independently; failures are collected in [DumpResult.Errors]
//     - An expired session stops the dump early
//
//  2. [LibraryEngine.ExportAlbums] : writes one tracklist per album plus a manifest
//     - A feeder fetches album songs (and cover URLs for Markdown) through a rate limiter
//     - A worker pool renders files through the formatter package
//     - Partial failures are recorded per album; an expired session stops feeding new albums
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
