package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/app"
	apperrors "github.com/pscheid92/timecapsule/internal/platform/errors"
)

func (s *Server) registerQuestionnaireRoutes(api *echo.Group) {
	api.GET("/questionnaire", s.handleNextPrompt)
	api.POST("/questionnaire/responses", s.handleSubmitResponse)
}

type promptResponse struct {
	State        app.PromptState `json:"state"`
	Message      string          `json:"message,omitempty"`
	CapsuleID    string          `json:"capsule_id,omitempty"`
	Question     string          `json:"question,omitempty"`
	QuestionDate string          `json:"question_date,omitempty"`
	Ordinal      int             `json:"ordinal,omitempty"`
}

type submitResponseRequest struct {
	CapsuleID    string `json:"capsule_id"`
	ResponseText string `json:"response_text"`
}

func (s *Server) handleNextPrompt(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	prompt, err := s.questionnaire.NextPrompt(ctx, userID)
	if err != nil {
		return apperrors.InternalError("failed to load today's question", err).WithField("user_id", userID.String())
	}

	resp := promptResponse{State: prompt.State, Message: prompt.Message}
	if prompt.State == app.PromptReady {
		resp.CapsuleID = prompt.CapsuleID.String()
		resp.Question = prompt.Question
		resp.QuestionDate = prompt.QuestionDate.Format(time.DateOnly)
		resp.Ordinal = prompt.Ordinal
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSubmitResponse(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}

	var body submitResponseRequest
	if err := c.Bind(&body); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	capsuleID, err := uuid.Parse(body.CapsuleID)
	if err != nil {
		return apperrors.ValidationError("invalid capsule ID").WithField("field", "capsule_id")
	}

	response, err := s.questionnaire.Submit(ctx, app.SubmitResponseRequest{
		OwnerID:      userID,
		CapsuleID:    capsuleID,
		ResponseText: body.ResponseText,
	})
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, toReflectionResponse(response)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
