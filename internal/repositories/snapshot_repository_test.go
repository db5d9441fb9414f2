package repositories

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/models"
)

func newMockRepo(t *testing.T) (*SnapshotRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSnapshotRepo(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSnapshotSaveUpserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	convs := []models.Conversation{{ID: 7, OtherUser: models.User{ID: 2, Username: "bob"}}}
	payload, err := json.Marshal(convs)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversation_snapshots")).
		WithArgs(1, payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), 1, convs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotSaveNilListStoresEmptyArray(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversation_snapshots")).
		WithArgs(1, []byte("[]")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), 1, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotLoad(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"user_id", "payload"}).
		AddRow(1, []byte(`[{"id":7,"otherUser":{"id":2,"username":"bob","online":false},"messages":[],"messagesRead":[],"numUnread":3}]`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, payload FROM conversation_snapshots WHERE user_id=$1")).
		WithArgs(1).
		WillReturnRows(rows)

	convs, err := repo.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 7, convs[0].ID)
	assert.Equal(t, "bob", convs[0].OtherUser.Username)
	assert.Equal(t, 3, convs[0].NumUnread)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotLoadNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, payload FROM conversation_snapshots")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "payload"}))

	_, err := repo.Load(context.Background(), 9)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
