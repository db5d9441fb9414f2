// Package presence turns online/offline pushes into store events.
package presence

import (
	"encoding/json"

	"github.com/pkg/errors"

	"messenger-client/internal/store"
)

// ErrNoUserID is returned for a payload that does not name a user.
var ErrNoUserID = errors.New("presence payload without user id")

// Changed builds the store event for one presence transition.
func Changed(userID int, online bool) store.Event {
	return store.PresenceChanged{UserID: userID, Online: online}
}

// Decode reads the user id from a presence payload. The backend sends a bare
// id; object forms {"id": n} and {"userId": n} are accepted too.
func Decode(raw json.RawMessage, online bool) (store.Event, error) {
	var id int
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == 0 {
			return nil, ErrNoUserID
		}
		return Changed(id, online), nil
	}

	var obj struct {
		ID     int `json:"id"`
		UserID int `json:"userId"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Wrap(err, "decode presence payload")
	}
	switch {
	case obj.ID != 0:
		id = obj.ID
	case obj.UserID != 0:
		id = obj.UserID
	default:
		return nil, ErrNoUserID
	}
	return Changed(id, online), nil
}
