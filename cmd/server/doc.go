// Package main is the entry point for the AppFeed backend server.
//
// The server backs a social feed of AI-generated mini-apps: self-contained
// HTML/CSS/JS bundles that are previewed in sandboxed iframes.
//
// Architecture:
//
//	Frontend (feed, create page) → Go Backend → generator (mock, Anthropic, OpenAI)
//	                                          → store (memory or badger)
//	sandbox iframe ── postMessage ──→ host page ──→ /api/apps/:id/events or /stream
//
// The server provides:
//   - REST API for the feed, likes, comments and profiles
//   - Sandbox documents with a strict CSP and a versioned bridge protocol
//   - App generation with safety scoring
//   - WebSocket streaming of live events
//   - Bundle export and import
//
// Usage:
//
//	# Defaults: memory store, mock generator, seed data
//	appfeed serve --port 8000
//
//	# Persistent store and development logging
//	appfeed serve --storage badger --data ./data --dev
//
//	appfeed version
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
