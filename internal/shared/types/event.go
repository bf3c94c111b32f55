package types

import "time"

// EventType names a domain event
type EventType string

const (
	EventAppCreated   EventType = "app_created"
	EventAppDeleted   EventType = "app_deleted"
	EventAppLiked     EventType = "app_liked"
	EventAppUnliked   EventType = "app_unliked"
	EventCommentAdded EventType = "comment_added"
	EventUserFollowed EventType = "user_followed"
)

// Event is a domain event fanned out to live subscribers
type Event struct {
	Type      EventType      `json:"type"`
	AppID     string         `json:"appId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
