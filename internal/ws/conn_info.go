package ws

import "time"

type ConnInfo struct {
	ConnID      string
	UserID      int
	URL         string
	RequestID   string
	ConnectedAt time.Time
}
