package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/mirrormatch/matching"
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
	blob, err := float32ArrayToBLOB(upsert.Embedding)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	stmt := `
		INSERT INTO user_archetype (user_id, partition_id, embedding, scores_json, evidence_json, confidence,
			message_count, reputation_score, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, partition_id)
		DO UPDATE SET
			embedding = excluded.embedding,
			scores_json = excluded.scores_json,
			evidence_json = excluded.evidence_json,
			confidence = excluded.confidence,
			message_count = excluded.message_count,
			reputation_score = excluded.reputation_score,
			updated_ts = excluded.updated_ts
		RETURNING ` + archetypeColumns

	archetype, err := scanArchetype(d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.PartitionID,
		blob,
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
	query := `SELECT ` + archetypeColumns + ` FROM user_archetype WHERE user_id = ? AND partition_id = ?`
	archetype, err := scanArchetype(d.db.QueryRowContext(ctx, query, find.UserID, find.PartitionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get archetype")
	}
	return archetype, nil
}

// SearchCandidates ranks the eligible rows of a partition by cosine
// similarity. Uses Go-based cosine similarity computation (application-layer).
func (d *DB) SearchCandidates(ctx context.Context, find *store.FindCandidates) ([]*store.Candidate, error) {
	query := `
		SELECT ` + archetypeColumns + `
		FROM user_archetype
		WHERE partition_id = ? AND user_id != ? AND status = ? AND abandonment_count < ?
		ORDER BY user_id ASC`

	rows, err := d.db.QueryContext(ctx, query,
		find.PartitionID, find.ExcludeUserID, string(store.StatusActive), store.AbandonmentThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search candidates")
	}
	defer rows.Close()

	candidates := []*store.Candidate{}
	for rows.Next() {
		archetype, err := scanArchetype(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate row")
		}
		candidates = append(candidates, &store.Candidate{
			UserID:           archetype.UserID,
			Similarity:       matching.Cosine(find.Embedding, archetype.Embedding),
			Vector:           archetype.Vector,
			ReputationScore:  archetype.ReputationScore,
			Status:           archetype.Status,
			AbandonmentCount: archetype.AbandonmentCount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > find.Limit {
		candidates = candidates[:find.Limit]
	}
	return candidates, nil
}

// ListPool returns the eligible rows of a partition, highest reputation first.
func (d *DB) ListPool(ctx context.Context, find *store.FindPool) ([]*store.Archetype, error) {
	query := `
		SELECT ` + archetypeColumns + `
		FROM user_archetype
		WHERE partition_id = ? AND status = ? AND abandonment_count < ?
		ORDER BY reputation_score DESC, user_id ASC`
	args := []any{find.PartitionID, string(store.StatusActive), store.AbandonmentThreshold}
	if find.Limit > 0 {
		query += ` LIMIT ?`
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
			status = CASE WHEN abandonment_count + 1 >= ? THEN ? ELSE status END,
			updated_ts = ?
		WHERE user_id = ? AND partition_id = ?
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
		SET abandonment_count = MAX(abandonment_count, ?),
			status = CASE WHEN MAX(abandonment_count, ?) >= ? THEN ? ELSE status END,
			updated_ts = ?
		WHERE user_id = ?
		RETURNING partition_id, abandonment_count, status`

	rows, err := d.db.QueryContext(ctx, stmt,
		count, count, store.AbandonmentThreshold, string(store.StatusFlagged), time.Now().Unix(), userID)
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

func scanArchetype(row rowScanner) (*store.Archetype, error) {
	var (
		archetype          store.Archetype
		blob               []byte
		scores, evidence   string
		confidence, status string
		messageCount       int
	)
	if err := row.Scan(
		&archetype.UserID,
		&archetype.PartitionID,
		&blob,
		&scores,
		&evidence,
		&confidence,
		&messageCount,
		&archetype.ReputationScore,
		&archetype.AbandonmentCount,
		&status,
		&archetype.CreatedTs,
		&archetype.UpdatedTs,
	); err != nil {
		return nil, err
	}

	embedding, err := blobToFloat32Array(blob)
	if err != nil {
		return nil, err
	}
	vector, err := store.DecodeVector(scores, evidence, confidence, messageCount)
	if err != nil {
		return nil, err
	}
	archetype.Embedding = embedding
	archetype.Vector = vector
	archetype.Status = store.Status(status)
	return &archetype, nil
}

// float32ArrayToBLOB stores a vector as little-endian float32 values.
func float32ArrayToBLOB(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, errors.New("embedding cannot be empty")
	}
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob, nil
}

func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid BLOB length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
