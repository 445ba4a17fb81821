// Package tasks orchestrates learning-path operations across the profile store, the completion service and video search,
// with real-time progress reporting.
//
// # Core Operations
//
// [PathEngine] exposes four operations:
//
//  1. [PathEngine.Create] : topic → curriculum
//     - Validates the topic before any network call
//     - Loads the caller's profile for education level and preferred language
//     - Generates and parses the curriculum
//     - Optionally prefetches recommended videos for every module
//
//  2. [PathEngine.RefineModule] : regenerate one module in place, keeping its id and position
//
//  3. [PathEngine.PrefetchVideos] : rate-limited worker pool over the modules
//     - Failures degrade per module to an empty list plus a notice
//
//  4. [PathEngine.Export] : JSON, CSV, Markdown or text files plus an export manifest
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
