package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"canaro-bot/internal/quota"
	"canaro-bot/internal/types"
)

// QuotaStore persists daily media quotas so a restart does not hand every
// user a fresh allowance.
type QuotaStore struct {
	db *DB
}

func (d *DB) QuotaStore() *QuotaStore {
	return &QuotaStore{db: d}
}

func (s *QuotaStore) Get(ctx context.Context, key quota.Key) (types.DailyQuota, bool, error) {
	q := types.DailyQuota{ChatID: key.ChatID, UserID: key.UserID}
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT quota_date, count FROM media_quotas WHERE chat_id = ? AND user_id = ?`,
		key.ChatID, key.UserID,
	).Scan(&q.Date, &q.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DailyQuota{}, false, nil
	}
	if err != nil {
		return types.DailyQuota{}, false, errors.Wrapf(err, "failed to get quota for chat %d user %d", key.ChatID, key.UserID)
	}
	return q, true, nil
}

func (s *QuotaStore) Set(ctx context.Context, q types.DailyQuota) error {
	_, err := s.db.conn.ExecContext(ctx,
		`INSERT INTO media_quotas (chat_id, user_id, quota_date, count, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (chat_id, user_id) DO UPDATE SET
		   quota_date = excluded.quota_date,
		   count = excluded.count,
		   updated_at = CURRENT_TIMESTAMP`,
		q.ChatID, q.UserID, q.Date, q.Count,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save quota")
	}
	return nil
}

// PurgeQuotasBefore drops records older than date (YYYY-MM-DD); they would be
// rolled over on next use anyway.
func (d *DB) PurgeQuotasBefore(ctx context.Context, date string) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM media_quotas WHERE quota_date < ?`, date)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge quotas")
	}
	return res.RowsAffected()
}
