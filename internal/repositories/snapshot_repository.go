package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-client/internal/models"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository abstracts the conversation snapshot cache.
type SnapshotRepository interface {
	Save(ctx context.Context, userID int, convs []models.Conversation) error
	Load(ctx context.Context, userID int) ([]models.Conversation, error)
}

// SnapshotRepo is a sqlx implementation of SnapshotRepository.
type SnapshotRepo struct {
	db *sqlx.DB
}

// NewSnapshotRepo constructs a SnapshotRepo.
func NewSnapshotRepo(db *sqlx.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

type snapshotRow struct {
	UserID  int    `db:"user_id"`
	Payload []byte `db:"payload"`
}

// Save replaces the stored conversation list of userID.
func (r *SnapshotRepo) Save(ctx context.Context, userID int, convs []models.Conversation) error {
	if convs == nil {
		convs = []models.Conversation{}
	}
	payload, err := json.Marshal(convs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO conversation_snapshots (user_id, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`, userID, payload)
	return err
}

// Load returns the stored conversation list of userID.
func (r *SnapshotRepo) Load(ctx context.Context, userID int) ([]models.Conversation, error) {
	var row snapshotRow
	err := r.db.GetContext(ctx, &row, `SELECT user_id, payload FROM conversation_snapshots WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var convs []models.Conversation
	if err := json.Unmarshal(row.Payload, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
