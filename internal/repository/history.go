package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"outfitsquare/internal/database"
	"outfitsquare/internal/model"
)

type historyRepository struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, q database.Querier, rec *model.HistoryRecord) error {
	query := q.Rebind(`
		INSERT INTO history_records (id, user_id, image_uri, reference_uris, verdict, credibility_score, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	_, err := q.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.ImageURI, rec.ReferenceURIs, rec.Verdict, rec.CredibilityScore, rec.Summary, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	return nil
}

func (r *historyRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.HistoryRecord, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, image_uri, reference_uris, verdict, credibility_score, summary, created_at
		FROM history_records
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)
	records := []model.HistoryRecord{}
	if err := r.db.SelectContext(ctx, &records, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

func (r *historyRepository) Delete(ctx context.Context, recordID, userID string) error {
	query := r.db.Rebind(`DELETE FROM history_records WHERE id = ? AND user_id = ?`)
	res, err := r.db.ExecContext(ctx, query, recordID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	changed, err := rowsChanged(res)
	if err != nil {
		return err
	}
	if !changed {
		return model.ErrHistoryNotFound
	}
	return nil
}
