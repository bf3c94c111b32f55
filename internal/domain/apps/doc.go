// Package apps implements the feed: publishing mini-apps, paginated and
// trending listings, likes and comments.
//
// Every new app is scored by the safety analyzer and goes live only when the
// score reaches the configured publish threshold. Drafts stay visible to
// their owner. Like toggles are real set operations; the like and comment
// counters live on the app record. State changes are published as domain
// events for live subscribers.
package apps
