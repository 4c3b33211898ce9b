package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	apperrors "github.com/pscheid92/timecapsule/internal/platform/errors"
)

func (s *Server) registerCapsuleRoutes(api *echo.Group) {
	api.POST("/capsules", s.handleCreateCapsule)
	api.GET("/capsules", s.handleListCapsules)
	api.GET("/capsules/:id", s.handleGetCapsule)
	api.DELETE("/capsules/:id", s.handleDeleteCapsule)
	api.GET("/capsules/:id/journey", s.handleJourney)
	api.PUT("/me", s.handleUpdateProfile)
}

type createCapsuleRequest struct {
	Message         string    `json:"message"`
	RevealAt        time.Time `json:"reveal_at"`
	MediaRefs       []string  `json:"media_refs"`
	ConfirmNegative bool      `json:"confirm_negative"`
}

type capsuleResponse struct {
	ID               string            `json:"id"`
	Message          string            `json:"message,omitempty"`
	MediaRefs        []string          `json:"media_refs,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	RevealAt         time.Time         `json:"reveal_at"`
	Revealed         bool              `json:"revealed"`
	RevealedAt       *time.Time        `json:"revealed_at,omitempty"`
	InitialSentiment *domain.Sentiment `json:"initial_sentiment,omitempty"`
}

type reflectionResponse struct {
	ID           string            `json:"id"`
	QuestionText string            `json:"question_text"`
	QuestionDate string            `json:"question_date"`
	ResponseText string            `json:"response_text"`
	Sentiment    *domain.Sentiment `json:"sentiment,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type journeyResponse struct {
	Capsule   capsuleResponse      `json:"capsule"`
	Summary   domain.TrendSummary  `json:"summary"`
	Responses []reflectionResponse `json:"responses"`
}

type updateProfileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// requestConfirmer answers the negative-sentiment prompt with what the client sent up front.
type requestConfirmer bool

func (r requestConfirmer) Confirm(context.Context, string) bool { return bool(r) }

// toCapsuleResponse renders a view. Sealed capsules expose only their schedule.
func toCapsuleResponse(v app.CapsuleView) capsuleResponse {
	resp := capsuleResponse{
		ID:         v.ID.String(),
		CreatedAt:  v.CreatedAt,
		RevealAt:   v.RevealAt,
		Revealed:   v.Revealed,
		RevealedAt: v.RevealedAt,
	}
	if v.Revealed {
		resp.Message = v.Message
		resp.MediaRefs = v.MediaRefs
		resp.InitialSentiment = v.InitialSentiment
	}
	return resp
}

func toReflectionResponse(r *domain.Response) reflectionResponse {
	return reflectionResponse{
		ID:           r.ID.String(),
		QuestionText: r.QuestionText,
		QuestionDate: r.QuestionDate.Format(time.DateOnly),
		ResponseText: r.ResponseText,
		Sentiment:    r.ResponseSentiment,
		CreatedAt:    r.CreatedAt,
	}
}

func userIDFrom(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("userID").(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalError("invalid user ID in context", nil)
	}
	return userID, nil
}

func capsuleIDParam(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	capsuleID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid capsule ID").WithField("capsule_id", raw)
	}
	return capsuleID, nil
}

func (s *Server) handleCreateCapsule(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var body createCapsuleRequest
	if err := c.Bind(&body); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	capsule, err := s.capsules.Create(ctx, app.CreateCapsuleRequest{
		OwnerID:   userID,
		Message:   body.Message,
		RevealAt:  body.RevealAt,
		MediaRefs: body.MediaRefs,
		Confirmer: requestConfirmer(body.ConfirmNegative),
	})
	if err != nil {
		return err
	}

	resp := toCapsuleResponse(app.CapsuleView{Capsule: *capsule})
	resp.InitialSentiment = capsule.InitialSentiment
	if err := c.JSON(http.StatusCreated, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListCapsules(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	views, err := s.capsules.List(ctx, userID)
	if err != nil {
		return apperrors.InternalError("failed to list capsules", err).WithField("user_id", userID.String())
	}

	resp := make([]capsuleResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toCapsuleResponse(v))
	}
	if err := c.JSON(http.StatusOK, map[string]any{"capsules": resp}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetCapsule(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	capsuleID, err := capsuleIDParam(c)
	if err != nil {
		return err
	}

	view, err := s.capsules.Get(ctx, userID, capsuleID)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, toCapsuleResponse(*view)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteCapsule(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	capsuleID, err := capsuleIDParam(c)
	if err != nil {
		return err
	}

	if err := s.capsules.Delete(ctx, userID, capsuleID); err != nil {
		return err
	}

	if err := c.NoContent(http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

func (s *Server) handleJourney(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	capsuleID, err := capsuleIDParam(c)
	if err != nil {
		return err
	}

	journey, err := s.capsules.Journey(ctx, userID, capsuleID)
	if err != nil {
		return err
	}

	resp := journeyResponse{
		Capsule:   toCapsuleResponse(journey.Capsule),
		Summary:   journey.Summary,
		Responses: make([]reflectionResponse, 0, len(journey.Responses)),
	}
	for _, r := range journey.Responses {
		resp.Responses = append(resp.Responses, toReflectionResponse(r))
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var body updateProfileRequest
	if err := c.Bind(&body); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	user, err := s.capsules.UpdateProfile(ctx, userID, body.Email, body.DisplayName)
	if err != nil {
		return err
	}

	resp := profileResponse{ID: user.ID.String(), Email: user.Email, DisplayName: user.DisplayName}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
