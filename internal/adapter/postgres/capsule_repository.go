package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/crypto"
)

const capsuleColumns = `id, owner_id, message, media_refs, created_at, reveal_at, is_revealed, revealed_at, initial_sentiment_label, initial_sentiment_score`

type CapsuleRepo struct {
	pool   *pgxpool.Pool
	cipher crypto.Service
}

var _ domain.CapsuleRepository = (*CapsuleRepo)(nil)

// NewCapsuleRepo creates a capsule repository. Messages are sealed with cipher
// before they are written; a nil cipher stores them as plain text.
func NewCapsuleRepo(pool *pgxpool.Pool, cipher crypto.Service) *CapsuleRepo {
	if cipher == nil {
		cipher = crypto.NoopService{}
	}
	return &CapsuleRepo{pool: pool, cipher: cipher}
}

// scanCapsule reads one row. A message that cannot be opened is logged and left
// empty so one damaged row does not fail a whole listing.
func (r *CapsuleRepo) scanCapsule(ctx context.Context, row pgx.Row) (*domain.Capsule, error) {
	var (
		c     domain.Capsule
		label *string
		score *float64
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Message, &c.MediaRefs, &c.CreatedAt, &c.RevealAt, &c.IsRevealed, &c.RevealedAt, &label, &score); err != nil {
		return nil, err
	}
	message, err := r.cipher.Open(c.Message, c.ID[:])
	if err != nil {
		slog.ErrorContext(ctx, "Failed to open capsule message", "capsule_id", c.ID, "error", err)
		message = ""
	}
	c.Message = message
	c.InitialSentiment = sentimentFromColumns(label, score)
	return &c, nil
}

func (r *CapsuleRepo) collectCapsules(ctx context.Context, rows pgx.Rows) ([]*domain.Capsule, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Capsule, error) {
		return r.scanCapsule(ctx, row)
	})
}

func sentimentFromColumns(label *string, score *float64) *domain.Sentiment {
	if label == nil {
		return nil
	}
	s := &domain.Sentiment{Label: domain.ParseSentimentLabel(*label)}
	if score != nil {
		s.Score = *score
	}
	return s
}

func sentimentColumns(s *domain.Sentiment) (*string, *float64) {
	if s == nil {
		return nil, nil
	}
	label := string(s.Label)
	return &label, &s.Score
}

func (r *CapsuleRepo) Create(ctx context.Context, c *domain.Capsule) error {
	label, score := sentimentColumns(c.InitialSentiment)
	mediaRefs := c.MediaRefs
	if mediaRefs == nil {
		mediaRefs = []string{}
	}
	message, err := r.cipher.Seal(c.Message, c.ID[:])
	if err != nil {
		return fmt.Errorf("failed to seal capsule message: %w", err)
	}

	_, err = r.pool.Exec(ctx, `-- name: CreateCapsule
		INSERT INTO capsules (`+capsuleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.OwnerID, message, mediaRefs, c.CreatedAt, c.RevealAt, c.IsRevealed, c.RevealedAt, label, score,
	)
	if err != nil {
		return fmt.Errorf("failed to insert capsule: %w", err)
	}
	return nil
}

func (r *CapsuleRepo) GetByID(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
	row := r.pool.QueryRow(ctx, `-- name: GetCapsuleByID
		SELECT `+capsuleColumns+` FROM capsules WHERE id = $1`, capsuleID)

	c, err := r.scanCapsule(ctx, row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCapsuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capsule by ID: %w", err)
	}
	return c, nil
}

func (r *CapsuleRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Capsule, error) {
	rows, err := r.pool.Query(ctx, `-- name: ListCapsulesByOwner
		SELECT `+capsuleColumns+` FROM capsules
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}

	capsules, err := r.collectCapsules(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan capsules: %w", err)
	}
	return capsules, nil
}

func (r *CapsuleRepo) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID, after, until time.Time) ([]*domain.Capsule, error) {
	rows, err := r.pool.Query(ctx, `-- name: ListActiveCapsulesByOwner
		SELECT `+capsuleColumns+` FROM capsules
		WHERE owner_id = $1 AND NOT is_revealed AND reveal_at > $2 AND reveal_at <= $3
		ORDER BY created_at DESC`, ownerID, after, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list active capsules: %w", err)
	}

	capsules, err := r.collectCapsules(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan active capsules: %w", err)
	}
	return capsules, nil
}

func (r *CapsuleRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Capsule, error) {
	rows, err := r.pool.Query(ctx, `-- name: ListDueCapsules
		SELECT `+capsuleColumns+` FROM capsules
		WHERE NOT is_revealed AND reveal_at <= $1
		ORDER BY reveal_at`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due capsules: %w", err)
	}

	capsules, err := r.collectCapsules(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan due capsules: %w", err)
	}
	return capsules, nil
}

// MarkRevealed flips the capsule only if it is still unrevealed and due.
// It reports whether this call performed the flip.
func (r *CapsuleRepo) MarkRevealed(ctx context.Context, capsuleID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `-- name: MarkCapsuleRevealed
		UPDATE capsules SET is_revealed = TRUE, revealed_at = $2
		WHERE id = $1 AND NOT is_revealed AND reveal_at <= $2`, capsuleID, now)
	if err != nil {
		return false, fmt.Errorf("failed to mark capsule revealed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CapsuleRepo) Delete(ctx context.Context, capsuleID, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `-- name: DeleteCapsule
		DELETE FROM capsules WHERE id = $1 AND owner_id = $2`, capsuleID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete capsule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCapsuleNotFound
	}
	return nil
}
