package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/core/ports"
)

const pollColumns = `id, question, options, creator, active, is_anonymous, expiry_date, created_at, closed_at`

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	query := `
		INSERT INTO polls (` + pollColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		poll.ID, poll.Question, pq.Array(poll.Options), poll.Creator, poll.Active,
		poll.IsAnonymous, poll.ExpiryDate, poll.CreatedAt, poll.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}
	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`
	poll, err := scanPoll(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadVotes(ctx, r.db, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

func (r *pollRepository) GetAll(ctx context.Context) ([]*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) ListByCreator(ctx context.Context, creator string) ([]*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE creator = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, creator)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls by creator: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

// RecordVote locks the poll row so the state checks and the insert see the
// same poll. The (poll_id, voter) key settles concurrent duplicates.
func (r *pollRepository) RecordVote(ctx context.Context, vote domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	poll, err := lockPoll(ctx, tx, vote.PollID)
	if err != nil {
		return err
	}
	if err := poll.CheckVote(vote.Voter, vote.OptionIndex, vote.CastAt); err != nil {
		return err
	}

	query := `
		INSERT INTO poll_votes (poll_id, voter, option_index, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, voter) DO NOTHING
	`
	res, err := tx.ExecContext(ctx, query, vote.PollID, vote.Voter, vote.OptionIndex, vote.CastAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if inserted == 0 {
		return domain.ErrAlreadyVoted
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *pollRepository) Close(ctx context.Context, id uuid.UUID, requester string, closedAt time.Time) (*domain.Poll, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	poll, err := lockPoll(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := poll.Close(requester, closedAt); err != nil {
		return nil, err
	}

	query := `UPDATE polls SET active = $2, closed_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, poll.ID, poll.Active, poll.ClosedAt); err != nil {
		return nil, fmt.Errorf("failed to close poll: %w", err)
	}
	if err := r.loadVotes(ctx, tx, poll); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return poll, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func lockPoll(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1 FOR UPDATE`
	return scanPoll(tx.QueryRowContext(ctx, query, id))
}

func scanPoll(row interface{ Scan(...any) error }) (*domain.Poll, error) {
	var poll domain.Poll
	err := row.Scan(
		&poll.ID, &poll.Question, pq.Array(&poll.Options), &poll.Creator, &poll.Active,
		&poll.IsAnonymous, &poll.ExpiryDate, &poll.CreatedAt, &poll.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to scan poll: %w", err)
	}
	poll.Votes = make(map[string]int)
	poll.VoteCounts = make([]int, len(poll.Options))
	return &poll, nil
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		if err := r.loadVotes(ctx, r.db, poll); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

func (r *pollRepository) loadVotes(ctx context.Context, q querier, poll *domain.Poll) error {
	query := `SELECT voter, option_index FROM poll_votes WHERE poll_id = $1`
	rows, err := q.QueryContext(ctx, query, poll.ID)
	if err != nil {
		return fmt.Errorf("failed to get poll votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var voter string
		var option int
		if err := rows.Scan(&voter, &option); err != nil {
			return fmt.Errorf("failed to scan vote: %w", err)
		}
		if option >= len(poll.VoteCounts) {
			return fmt.Errorf("vote for option %d outside poll %s", option, poll.ID)
		}
		poll.Votes[voter] = option
		poll.VoteCounts[option]++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating votes: %w", err)
	}
	return nil
}
