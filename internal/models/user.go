package models

// User is a chat participant. Online is only changed by presence events.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// SessionUser is the authenticated local user.
type SessionUser struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	IsFetching bool   `json:"isFetching,omitempty"`
}
