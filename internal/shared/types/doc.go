// Package types provides shared data structures for the AppFeed backend.
//
// JSON field names are camelCase to match what the feed frontend already
// consumes (htmlContent, isLiked, safetyScore, ...).
//
// Core Types:
//   - App: A published or draft mini-app with its code and counters
//   - User, UserSummary: Feed users and the embedded author card
//   - Comment: A comment on an app
//   - Pagination: Page metadata returned with every listing
//   - ProfileStats: Aggregates shown on a profile page
//   - Event: Domain event fanned out to WebSocket subscribers
//
// Request Types:
//   - CreateAppRequest, GenerateRequest, CommentRequest
//   - WSMessage: WebSocket communication
package types
