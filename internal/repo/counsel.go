package repo

import (
	"context"
	"database/sql"

	"docketline/internal/domain"
)

// UpsertCounselHistory records the latest attendance record for a counsel.
func (r Repo) UpsertCounselHistory(ctx context.Context, h domain.CounselHistory) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO counsel_history(counsel_id, absence_rate, recent_no_shows, updated_at)
VALUES (?,?,?,?)
ON CONFLICT(counsel_id) DO UPDATE SET absence_rate=excluded.absence_rate, recent_no_shows=excluded.recent_no_shows, updated_at=excluded.updated_at`,
		h.CounselID, h.AbsenceRate, h.RecentNoShows, h.UpdatedAt)
	return err
}

func (r Repo) GetCounselHistory(ctx context.Context, counselID string) (domain.CounselHistory, error) {
	var h domain.CounselHistory
	err := r.DB.QueryRowContext(ctx, `SELECT counsel_id, absence_rate, recent_no_shows, updated_at FROM counsel_history WHERE counsel_id=?`, counselID).
		Scan(&h.CounselID, &h.AbsenceRate, &h.RecentNoShows, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	return h, err
}

func (r Repo) GetCounselHistoryTx(ctx context.Context, tx *sql.Tx, counselID string) (domain.CounselHistory, error) {
	var h domain.CounselHistory
	err := tx.QueryRowContext(ctx, `SELECT counsel_id, absence_rate, recent_no_shows, updated_at FROM counsel_history WHERE counsel_id=?`, counselID).
		Scan(&h.CounselID, &h.AbsenceRate, &h.RecentNoShows, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	return h, err
}
