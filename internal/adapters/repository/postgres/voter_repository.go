package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

type voterRepository struct {
	db *sql.DB
}

func NewVoterRepository(db *sql.DB) ports.VoterRepository {
	return &voterRepository{
		db: db,
	}
}

func (r *voterRepository) Touch(ctx context.Context, address string, now, windowStart time.Time) (*domain.VoterRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	register := `
		INSERT INTO voters (address, first_seen, verified_at, verification_method)
		VALUES ($1, $2, $2, $3)
		ON CONFLICT (address) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, register, address, now, domain.VerificationBasicFormat); err != nil {
		return nil, fmt.Errorf("failed to register voter: %w", err)
	}

	prune := `DELETE FROM voter_votes WHERE address = $1 AND cast_at <= $2`
	if _, err := tx.ExecContext(ctx, prune, address, windowStart); err != nil {
		return nil, fmt.Errorf("failed to prune voter window: %w", err)
	}

	rec, err := r.load(ctx, tx, address)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rec, nil
}

func (r *voterRepository) AppendVote(ctx context.Context, address string, at time.Time) error {
	query := `INSERT INTO voter_votes (address, cast_at) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, address, at); err != nil {
		return fmt.Errorf("failed to record voter timestamp: %w", err)
	}
	return nil
}

func (r *voterRepository) Get(ctx context.Context, address string) (*domain.VoterRecord, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := r.load(ctx, tx, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, tx.Commit()
}

func (r *voterRepository) load(ctx context.Context, tx *sql.Tx, address string) (*domain.VoterRecord, error) {
	query := `
		SELECT address, first_seen, verified_at, verification_method
		FROM voters
		WHERE address = $1
	`
	var rec domain.VoterRecord
	err := tx.QueryRowContext(ctx, query, address).Scan(
		&rec.Address, &rec.FirstSeen, &rec.VerifiedAt, &rec.VerificationMethod,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT cast_at FROM voter_votes WHERE address = $1 ORDER BY cast_at`, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get voter timestamps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan voter timestamp: %w", err)
		}
		rec.VoteTimestamps = append(rec.VoteTimestamps, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voter timestamps: %w", err)
	}
	return &rec, nil
}
