package postgres

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/store"
)

const archetypeColumns = `user_id, partition_id, embedding, scores_json, evidence_json, confidence, message_count,
	reputation_score, abandonment_count, status, created_ts, updated_ts`

// UpsertArchetype inserts or replaces the vector of an (identity, partition)
// row. Abandonment count and status survive the update.
func (d *DB) UpsertArchetype(ctx context.Context, upsert *store.UpsertArchetype) (*store.Archetype, error) {
	scores, evidence, err := store.EncodeVector(upsert.Vector)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	stmt := `
		INSERT INTO user_archetype (user_id, partition_id, embedding, scores_json, evidence_json, confidence,
			message_count, reputation_score, created_ts, updated_ts)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (user_id, partition_id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			scores_json = EXCLUDED.scores_json,
			evidence_json = EXCLUDED.evidence_json,
			confidence = EXCLUDED.confidence,
			message_count = EXCLUDED.message_count,
			reputation_score = EXCLUDED.reputation_score,
			updated_ts = EXCLUDED.updated_ts
		RETURNING ` + archetypeColumns

	archetype, err := scanArchetype(d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.PartitionID,
		pgvector.NewVector(upsert.Embedding),
		scores,
		evidence,
		string(upsert.Vector.ConfidenceOrUnknown()),
		upsert.Vector.MessageCount,
		upsert.ReputationScore,
		now,
		now,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert archetype")
	}
	return archetype, nil
}

// GetArchetype returns store.ErrNotFound when no row matches.
func (d *DB) GetArchetype(ctx context.Context, find *store.FindArchetype) (*store.Archetype, error) {
	query := `SELECT ` + archetypeColumns + ` FROM user_archetype WHERE user_id = ` + placeholder(1) + ` AND partition_id = ` + placeholder(2)
	archetype, err := scanArchetype(d.db.QueryRowContext(ctx, query, find.UserID, find.PartitionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get archetype")
	}
	return archetype, nil
}

// SearchCandidates ranks eligible rows by pgvector cosine distance.
// Similarity is 1 - distance.
func (d *DB) SearchCandidates(ctx context.Context, find *store.FindCandidates) ([]*store.Candidate, error) {
	query := `
		SELECT ` + archetypeColumns + `, 1 - (embedding <=> ` + placeholder(1) + `) AS similarity
		FROM user_archetype
		WHERE partition_id = ` + placeholder(2) + `
			AND user_id != ` + placeholder(3) + `
			AND status = ` + placeholder(4) + `
			AND abandonment_count < ` + placeholder(5) + `
		ORDER BY embedding <=> ` + placeholder(1) + ` ASC, user_id ASC
		LIMIT ` + placeholder(6)

	rows, err := d.db.QueryContext(ctx, query,
		pgvector.NewVector(find.Embedding),
		find.PartitionID,
		find.ExcludeUserID,
		string(store.StatusActive),
		store.AbandonmentThreshold,
		find.Limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search candidates")
	}
	defer rows.Close()

	candidates := []*store.Candidate{}
	for rows.Next() {
		var similarity float64
		archetype, err := scanArchetype(rows, &similarity)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate")
		}
		candidates = append(candidates, &store.Candidate{
			UserID:           archetype.UserID,
			Similarity:       similarity,
			Vector:           archetype.Vector,
			ReputationScore:  archetype.ReputationScore,
			Status:           archetype.Status,
			AbandonmentCount: archetype.AbandonmentCount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// ListPool returns the eligible rows of a partition, highest reputation first.
func (d *DB) ListPool(ctx context.Context, find *store.FindPool) ([]*store.Archetype, error) {
	query := `
		SELECT ` + archetypeColumns + `
		FROM user_archetype
		WHERE partition_id = ` + placeholder(1) + ` AND status = ` + placeholder(2) + ` AND abandonment_count < ` + placeholder(3) + `
		ORDER BY reputation_score DESC, user_id ASC`
	args := []any{find.PartitionID, string(store.StatusActive), store.AbandonmentThreshold}
	if find.Limit > 0 {
		query += ` LIMIT ` + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pool")
	}
	defer rows.Close()

	list := []*store.Archetype{}
	for rows.Next() {
		archetype, err := scanArchetype(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan pool row")
		}
		list = append(list, archetype)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// IncrementAbandonment bumps the counter and flags the row once it reaches
// the threshold, in one statement.
func (d *DB) IncrementAbandonment(ctx context.Context, userID, partitionID string) (*store.AbandonmentState, error) {
	stmt := `
		UPDATE user_archetype
		SET abandonment_count = abandonment_count + 1,
			status = CASE WHEN abandonment_count + 1 >= ` + placeholder(1) + ` THEN ` + placeholder(2) + ` ELSE status END,
			updated_ts = ` + placeholder(3) + `
		WHERE user_id = ` + placeholder(4) + ` AND partition_id = ` + placeholder(5) + `
		RETURNING abandonment_count, status`

	state := &store.AbandonmentState{UserID: userID, PartitionID: partitionID}
	var status string
	err := d.db.QueryRowContext(ctx, stmt,
		store.AbandonmentThreshold, string(store.StatusFlagged), time.Now().Unix(), userID, partitionID,
	).Scan(&state.Count, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to increment abandonment")
	}
	state.Status = store.Status(status)
	return state, nil
}

// ApplyLedgerCount raises the counter of every row of userID to count when
// count is larger, applying the same flag rule in the same statement.
func (d *DB) ApplyLedgerCount(ctx context.Context, userID string, count int) ([]*store.AbandonmentState, error) {
	stmt := `
		UPDATE user_archetype
		SET abandonment_count = GREATEST(abandonment_count, ` + placeholder(1) + `),
			status = CASE WHEN GREATEST(abandonment_count, ` + placeholder(1) + `) >= ` + placeholder(2) + ` THEN ` + placeholder(3) + ` ELSE status END,
			updated_ts = ` + placeholder(4) + `
		WHERE user_id = ` + placeholder(5) + `
		RETURNING partition_id, abandonment_count, status`

	rows, err := d.db.QueryContext(ctx, stmt,
		count, store.AbandonmentThreshold, string(store.StatusFlagged), time.Now().Unix(), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply ledger count")
	}
	defer rows.Close()

	states := []*store.AbandonmentState{}
	for rows.Next() {
		state := &store.AbandonmentState{UserID: userID}
		var status string
		if err := rows.Scan(&state.PartitionID, &state.Count, &status); err != nil {
			return nil, errors.Wrap(err, "failed to scan ledger count result")
		}
		state.Status = store.Status(status)
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(states, func(i, j int) bool { return states[i].PartitionID < states[j].PartitionID })
	return states, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanArchetype reads archetypeColumns followed by any extra destinations.
func scanArchetype(row rowScanner, extra ...any) (*store.Archetype, error) {
	var (
		archetype          store.Archetype
		embedding          pgvector.Vector
		scores, evidence   string
		confidence, status string
		messageCount       int
	)
	dest := []any{
		&archetype.UserID,
		&archetype.PartitionID,
		&embedding,
		&scores,
		&evidence,
		&confidence,
		&messageCount,
		&archetype.ReputationScore,
		&archetype.AbandonmentCount,
		&status,
		&archetype.CreatedTs,
		&archetype.UpdatedTs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	vector, err := store.DecodeVector(scores, evidence, confidence, messageCount)
	if err != nil {
		return nil, err
	}
	archetype.Embedding = embedding.Slice()
	archetype.Vector = vector
	archetype.Status = store.Status(status)
	return &archetype, nil
}
