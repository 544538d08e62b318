package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saga-engine/internal/ledger/domain"
	"saga-engine/internal/ledger/store/postgres"
	"saga-engine/internal/platform/apierr"
	"saga-engine/internal/platform/logging"
)

type deadLetterResponse struct {
	ID              string  `json:"id"`
	OriginalTopic   string  `json:"originalTopic"`
	ErrorMessage    string  `json:"errorMessage"`
	AttemptCount    int     `json:"attemptCount"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"createdAt"`
	ProcessedAt     *string `json:"processedAt,omitempty"`
}

func toDeadLetterResponse(dl domain.DeadLetter) deadLetterResponse {
	resp := deadLetterResponse{
		ID:            dl.ID.String(),
		OriginalTopic: dl.OriginalTopic,
		ErrorMessage:  dl.ErrorMessage,
		AttemptCount:  dl.AttemptCount,
		Status:        string(dl.Status),
		CreatedAt:     dl.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if dl.ProcessedAt != nil {
		s := dl.ProcessedAt.Format("2006-01-02T15:04:05.000Z07:00")
		resp.ProcessedAt = &s
	}
	return resp
}

// MakeListDeadLettersHandler handles GET /admin/dlq (spec.md §6).
func MakeListDeadLettersHandler(deps Dependencies) gin.HandlerFunc {
	admin := deps.GetDLQAdmin()

	return func(c *gin.Context) {
		status := domain.DeadLetterStatus(c.Query("status"))
		entries, err := admin.List(c.Request.Context(), status)
		if err != nil {
			logging.Error("failed to list dead letters", err, nil)
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}

		out := make([]deadLetterResponse, 0, len(entries))
		for _, dl := range entries {
			out = append(out, toDeadLetterResponse(dl))
		}
		c.JSON(http.StatusOK, out)
	}
}

// MakeGetDeadLetterHandler handles GET /admin/dlq/{id}.
func MakeGetDeadLetterHandler(deps Dependencies) gin.HandlerFunc {
	admin := deps.GetDLQAdmin()

	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidationError("id must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		dl, err := admin.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, postgres.ErrDeadLetterNotFound) {
				apiErr := apierr.NewNotFoundError("dead letter")
				c.JSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("failed to get dead letter", err, map[string]interface{}{"id": id.String()})
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}
		c.JSON(http.StatusOK, toDeadLetterResponse(dl))
	}
}

type replayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MakeReplayDeadLetterHandler handles POST /admin/dlq/{id}/replay.
func MakeReplayDeadLetterHandler(deps Dependencies) gin.HandlerFunc {
	admin := deps.GetDLQAdmin()

	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidationError("id must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		success, message, err := admin.Replay(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, postgres.ErrDeadLetterNotFound) {
				apiErr := apierr.NewNotFoundError("dead letter")
				c.JSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("failed to replay dead letter", err, map[string]interface{}{"id": id.String()})
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, replayResponse{Success: success, Message: message})
	}
}
