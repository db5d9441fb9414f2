package presence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/models"
	"messenger-client/internal/store"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		online  bool
		want    store.Event
		wantErr error
	}{
		{name: "bare id", raw: `2`, online: true, want: store.PresenceChanged{UserID: 2, Online: true}},
		{name: "object id", raw: `{"id":3}`, online: false, want: store.PresenceChanged{UserID: 3}},
		{name: "object userId", raw: `{"userId":4}`, online: true, want: store.PresenceChanged{UserID: 4, Online: true}},
		{name: "zero", raw: `0`, online: true, wantErr: ErrNoUserID},
		{name: "empty object", raw: `{}`, online: true, wantErr: ErrNoUserID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := Decode(json.RawMessage(tc.raw), tc.online)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(json.RawMessage(`"bob"`), true)
	assert.Error(t, err)
}

func TestLastEventWins(t *testing.T) {
	s := store.Reduce(store.New(1), store.ConversationsLoaded{Conversations: []models.Conversation{
		{ID: 7, OtherUser: models.User{ID: 2, Username: "bob"}},
	}})
	for _, online := range []bool{true, false, true} {
		s = store.Reduce(s, Changed(2, online))
	}
	c, ok := s.FindByUser(2)
	require.True(t, ok)
	assert.True(t, c.OtherUser.Online)
}
