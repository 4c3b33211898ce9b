package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/crypto"
)

type ResponseRepo struct {
	pool   *pgxpool.Pool
	cipher crypto.Service
}

var _ domain.ResponseRepository = (*ResponseRepo)(nil)

func NewResponseRepo(pool *pgxpool.Pool, cipher crypto.Service) *ResponseRepo {
	if cipher == nil {
		cipher = crypto.NoopService{}
	}
	return &ResponseRepo{pool: pool, cipher: cipher}
}

// Create stores a response. A second response for the same capsule and question
// date is rejected with domain.ErrDuplicateResponse.
func (r *ResponseRepo) Create(ctx context.Context, resp *domain.Response) error {
	label, score := sentimentColumns(resp.ResponseSentiment)
	text, err := r.cipher.Seal(resp.ResponseText, resp.ID[:])
	if err != nil {
		return fmt.Errorf("failed to seal response text: %w", err)
	}

	_, err = r.pool.Exec(ctx, `-- name: CreateResponse
		INSERT INTO responses (id, capsule_id, owner_id, question_text, question_date, response_text, response_sentiment_label, response_sentiment_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		resp.ID, resp.CapsuleID, resp.OwnerID, resp.QuestionText, resp.QuestionDate, text, label, score, resp.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateResponse
	}
	if isForeignKeyViolation(err) {
		return domain.ErrCapsuleNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert response: %w", err)
	}
	return nil
}

func (r *ResponseRepo) ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]*domain.Response, error) {
	rows, err := r.pool.Query(ctx, `-- name: ListResponsesByCapsule
		SELECT id, capsule_id, owner_id, question_text, question_date, response_text, response_sentiment_label, response_sentiment_score, created_at
		FROM responses
		WHERE capsule_id = $1
		ORDER BY question_date`, capsuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	responses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Response, error) {
		var (
			resp  domain.Response
			label *string
			score *float64
		)
		if err := row.Scan(&resp.ID, &resp.CapsuleID, &resp.OwnerID, &resp.QuestionText, &resp.QuestionDate, &resp.ResponseText, &label, &score, &resp.CreatedAt); err != nil {
			return nil, err
		}
		text, err := r.cipher.Open(resp.ResponseText, resp.ID[:])
		if err != nil {
			slog.ErrorContext(ctx, "Failed to open response text", "response_id", resp.ID, "error", err)
			text = ""
		}
		resp.ResponseText = text
		resp.ResponseSentiment = sentimentFromColumns(label, score)
		return &resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan responses: %w", err)
	}
	return responses, nil
}

func (r *ResponseRepo) CountByCapsule(ctx context.Context, capsuleID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `-- name: CountResponsesByCapsule
		SELECT COUNT(*) FROM responses WHERE capsule_id = $1`, capsuleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return n, nil
}

func (r *ResponseRepo) ExistsForOwnerBetween(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `-- name: ResponseExistsForOwnerBetween
		SELECT EXISTS (
			SELECT 1 FROM responses WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3
		)`, ownerID, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check responses: %w", err)
	}
	return exists, nil
}
