package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sweepRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/internal/sweep", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSweepTrigger_Disabled(t *testing.T) {
	sweeper := &mockSweeper{}
	srv := newTestServer(t, withSweeper(sweeper))

	rec := serve(srv, sweepRequest("anything"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, sweeper.calls)
}

func TestSweepTrigger_RejectsBadToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong", "guess"},
		{"prefix of real token", "s3cre"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := &mockSweeper{}
			srv := newTestServer(t, withSweeper(sweeper), withSweepToken("s3cret"))

			rec := serve(srv, sweepRequest(tt.token))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, 0, sweeper.calls)
		})
	}
}

func TestSweepTrigger_ReturnsReport(t *testing.T) {
	failedID := uuid.New()
	sweeper := &mockSweeper{
		runFn: func(context.Context) (*app.SweepReport, error) {
			return &app.SweepReport{
				TotalDue:      3,
				RevealedCount: 2,
				SkippedCount:  1,
				Errors: []app.CapsuleError{
					{CapsuleID: failedID, Step: app.StepResolveOwner, Err: domain.ErrUserNotFound},
				},
			}, nil
		},
	}
	srv := newTestServer(t, withSweeper(sweeper), withSweepToken("s3cret"))

	rec := serve(srv, sweepRequest("s3cret"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sweeper.calls)

	var resp sweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalDue)
	assert.Equal(t, 2, resp.RevealedCount)
	assert.Equal(t, 1, resp.SkippedCount)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, failedID.String(), resp.Errors[0].CapsuleID)
	assert.Equal(t, app.StepResolveOwner, resp.Errors[0].Step)
	assert.Equal(t, domain.ErrUserNotFound.Error(), resp.Errors[0].Error)
}

func TestSweepTrigger_RunFailure(t *testing.T) {
	sweeper := &mockSweeper{
		runFn: func(context.Context) (*app.SweepReport, error) {
			return nil, errors.New("list due capsules: connection refused")
		},
	}
	srv := newTestServer(t, withSweeper(sweeper), withSweepToken("s3cret"))

	rec := serve(srv, sweepRequest("s3cret"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
