package types

import "time"

// UserSummary is the author card embedded in every app
type UserSummary struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// App represents a mini-app in the feed
type App struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	HTMLContent string      `json:"htmlContent"`
	CSSContent  string      `json:"cssContent"`
	JSContent   string      `json:"jsContent"`
	PromptUsed  string      `json:"promptUsed"`
	UserID      string      `json:"userId"`
	User        UserSummary `json:"user"`
	Likes       int         `json:"likes"`
	Comments    int         `json:"comments"`
	IsLiked     bool        `json:"isLiked"`
	IsPublished bool        `json:"isPublished"`
	SafetyScore float64     `json:"safetyScore"`
	ContentHash string      `json:"contentHash"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Clone returns a copy safe to hand outside a lock
func (a *App) Clone() *App {
	c := *a
	if a.User.AvatarURL != nil {
		avatar := *a.User.AvatarURL
		c.User.AvatarURL = &avatar
	}
	return &c
}

// Comment is a single comment on an app
type Comment struct {
	ID        string      `json:"id"`
	AppID     string      `json:"appId"`
	UserID    string      `json:"userId"`
	User      UserSummary `json:"user"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Pagination describes a page of a listing
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// LikeState is the result of a like toggle or status lookup
type LikeState struct {
	IsLiked   bool `json:"isLiked"`
	LikeCount int  `json:"likeCount"`
}

// GeneratedApp is the code bundle produced by a generator
type GeneratedApp struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	HTMLContent string `json:"htmlContent"`
	CSSContent  string `json:"cssContent"`
	JSContent   string `json:"jsContent"`
}

// ConversationMessage is one turn of the create-page chat
type ConversationMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}
