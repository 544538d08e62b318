package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saga-engine/internal/coordinator/domain"
	"saga-engine/internal/coordinator/store/postgres"
	"saga-engine/internal/platform/apierr"
	"saga-engine/internal/platform/httpmw"
	"saga-engine/internal/platform/logging"
)

type createTransferRequest struct {
	SenderWalletID   string `json:"senderWalletId"`
	ReceiverWalletID string `json:"receiverWalletId"`
	Amount           int64  `json:"amount"`
}

type transferResponse struct {
	TransferID       string  `json:"transferId"`
	SenderWalletID   string  `json:"senderWalletId"`
	ReceiverWalletID string  `json:"receiverWalletId"`
	Amount           int64   `json:"amount"`
	Status           string  `json:"status"`
	FailureReason    *string `json:"failureReason,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func toResponse(t domain.Transfer) transferResponse {
	return transferResponse{
		TransferID:       t.TransferID.String(),
		SenderWalletID:   t.SenderWalletID.String(),
		ReceiverWalletID: t.ReceiverWalletID.String(),
		Amount:           t.Amount,
		Status:           string(t.Status),
		FailureReason:    t.FailureReason,
		CreatedAt:        t.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// MakeCreateTransferHandler handles POST /transfers (spec.md §6). No
// network I/O happens beyond the single local database transaction
// (spec.md §4.1 "Initiation contract").
func MakeCreateTransferHandler(deps Dependencies) gin.HandlerFunc {
	store := deps.GetStore()
	sagaTimeout := deps.GetSagaTimeout()

	return func(c *gin.Context) {
		var req createTransferRequest
		if err := httpmw.BindStrictJSON(c, &req); err != nil {
			apiErr := apierr.NewValidationError("invalid request body")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		senderID, err := uuid.Parse(req.SenderWalletID)
		if err != nil {
			apiErr := apierr.NewValidationError("senderWalletId must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		receiverID, err := uuid.Parse(req.ReceiverWalletID)
		if err != nil {
			apiErr := apierr.NewValidationError("receiverWalletId must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if senderID == receiverID {
			apiErr := apierr.NewValidationError("senderWalletId and receiverWalletId must differ")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if req.Amount < 1 {
			apiErr := apierr.NewValidationError("amount must be a positive integer")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		t, err := store.CreateTransfer(c.Request.Context(), senderID, receiverID, req.Amount, sagaTimeout)
		if err != nil {
			logging.Error("failed to create transfer", err, map[string]interface{}{
				"sender_wallet_id": senderID.String(), "receiver_wallet_id": receiverID.String(),
			})
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusAccepted, toResponse(t))
	}
}

// MakeGetTransferHandler handles GET /transfers/{id}.
func MakeGetTransferHandler(deps Dependencies) gin.HandlerFunc {
	store := deps.GetStore()

	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidationError("id must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		t, err := store.GetTransfer(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				apiErr := apierr.NewNotFoundError("transfer")
				c.JSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("failed to get transfer", err, map[string]interface{}{"transfer_id": id.String()})
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, toResponse(t))
	}
}
