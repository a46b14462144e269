package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/drive-filing-bot/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS filing_batches (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	items JSONB NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS upload_results (
	batch_id TEXT NOT NULL REFERENCES filing_batches(id),
	item_id TEXT NOT NULL,
	original_name TEXT NOT NULL,
	remote_file_id TEXT,
	remote_link TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (batch_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_filing_batches_owner ON filing_batches(owner_id);
CREATE INDEX IF NOT EXISTS idx_filing_batches_status ON filing_batches(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	itemsJSON, err := json.Marshal(batch.Items)
	if err != nil {
		return fmt.Errorf("marshal batch items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO filing_batches (id, owner_id, items, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		batch.ID, batch.OwnerID, itemsJSON, string(batch.Status), batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, items, status, created_at, updated_at
FROM filing_batches
WHERE id = $1
`, id)

	var batch domain.Batch
	var itemsRaw []byte
	var status string

	err := row.Scan(&batch.ID, &batch.OwnerID, &itemsRaw, &status, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &batch.Items); err != nil {
		return nil, fmt.Errorf("unmarshal batch items: %w", err)
	}
	batch.Status = domain.BatchStatus(status)
	return &batch, nil
}

func (r *BatchRepository) UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE filing_batches SET status = $2, updated_at = $3 WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *BatchRepository) SaveResults(ctx context.Context, batchID string, results []domain.UploadResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin results tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for _, result := range results {
		_, err := tx.ExecContext(ctx, `
INSERT INTO upload_results (batch_id, item_id, original_name, remote_file_id, remote_link, status, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (batch_id, item_id) DO UPDATE
SET remote_file_id = EXCLUDED.remote_file_id,
    remote_link = EXCLUDED.remote_link,
    status = EXCLUDED.status,
    error_message = EXCLUDED.error_message
`,
			batchID, result.ItemID, result.OriginalName, result.RemoteFileID,
			result.RemoteLink, string(result.Status), result.Error, now,
		)
		if err != nil {
			return fmt.Errorf("insert upload result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) ListResults(ctx context.Context, batchID string) ([]domain.UploadResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT item_id, original_name, remote_file_id, remote_link, status, error_message
FROM upload_results
WHERE batch_id = $1
ORDER BY item_id
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query upload results: %w", err)
	}
	defer rows.Close()

	var results []domain.UploadResult
	for rows.Next() {
		var result domain.UploadResult
		var remoteFileID, remoteLink, errMessage sql.NullString
		var status string

		if err := rows.Scan(&result.ItemID, &result.OriginalName, &remoteFileID, &remoteLink, &status, &errMessage); err != nil {
			return nil, fmt.Errorf("scan upload result: %w", err)
		}
		result.RemoteFileID = remoteFileID.String
		result.RemoteLink = remoteLink.String
		result.Error = errMessage.String
		result.Status = domain.UploadStatus(status)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upload results: %w", err)
	}
	return results, nil
}
