package types

import "time"

// User represents a feed user
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	AvatarURL   *string   `json:"avatarUrl"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Summary returns the author card for this user
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// ProfileStats contains the numbers shown on a profile page
type ProfileStats struct {
	Followers    int     `json:"followers"`
	Following    int     `json:"following"`
	AppsCreated  int     `json:"appsCreated"`
	TotalLikes   int     `json:"totalLikes"`
	AverageLikes float64 `json:"averageLikes"`
	LikesStdDev  float64 `json:"likesStdDev"`
}

// Profile bundles a user with their stats
type Profile struct {
	User        User         `json:"user"`
	Stats       ProfileStats `json:"stats"`
	IsFollowing bool         `json:"isFollowing"`
}

// FollowState is the result of a follow toggle
type FollowState struct {
	IsFollowing bool `json:"isFollowing"`
	Followers   int  `json:"followers"`
}
