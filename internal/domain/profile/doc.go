// Package profile serves user profiles: follower counts, like statistics
// across a user's apps, the follow toggle, and the "My Apps" and "Liked"
// tabs.
package profile
