package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/store"
)

// CreateMatchRecords bulk-loads a batch with COPY. Record IDs are not read
// back; UID is the stable handle.
func (d *DB) CreateMatchRecords(ctx context.Context, records []*store.MatchRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("match_history",
		"uid", "user_a_id", "user_b_id", "partition_id", "context", "raw_score", "weighted_score",
		"grade", "red_flags_json", "blurb_json", "created_ts"))
	if err != nil {
		return errors.Wrap(err, "failed to prepare match record copy")
	}

	now := time.Now().Unix()
	for _, r := range records {
		if r.CreatedTs == 0 {
			r.CreatedTs = now
		}
		if r.RedFlagsJSON == "" {
			r.RedFlagsJSON = "[]"
		}
		if _, err := stmt.ExecContext(ctx, r.UID, r.UserAID, r.UserBID, r.PartitionID, r.Context,
			r.RawScore, r.WeightedScore, r.Grade, r.RedFlagsJSON, r.BlurbJSON, r.CreatedTs); err != nil {
			_ = stmt.Close()
			return errors.Wrapf(err, "failed to copy match record %s", r.UID)
		}
	}
	// An empty Exec flushes the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return errors.Wrap(err, "failed to flush match records")
	}
	if err := stmt.Close(); err != nil {
		return errors.Wrap(err, "failed to close match record copy")
	}
	return errors.Wrap(tx.Commit(), "failed to commit match records")
}

func (d *DB) ListMatchRecords(ctx context.Context, find *store.FindMatchRecord) ([]*store.MatchRecord, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.UserID != nil {
		args = append(args, *find.UserID)
		where = append(where, "(user_a_id = "+placeholder(len(args))+" OR user_b_id = "+placeholder(len(args))+")")
	}
	if find.PartitionID != nil {
		where, args = append(where, "partition_id = "+placeholder(len(args)+1)), append(args, *find.PartitionID)
	}
	if find.Context != nil {
		where, args = append(where, "context = "+placeholder(len(args)+1)), append(args, *find.Context)
	}

	query := `
		SELECT id, uid, user_a_id, user_b_id, partition_id, context, raw_score, weighted_score, grade,
			red_flags_json, blurb_json, created_ts
		FROM match_history
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit > 0 {
		query += ` LIMIT ` + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list match records")
	}
	defer rows.Close()

	list := []*store.MatchRecord{}
	for rows.Next() {
		var r store.MatchRecord
		if err := rows.Scan(&r.ID, &r.UID, &r.UserAID, &r.UserBID, &r.PartitionID, &r.Context,
			&r.RawScore, &r.WeightedScore, &r.Grade, &r.RedFlagsJSON, &r.BlurbJSON, &r.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan match record")
		}
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
