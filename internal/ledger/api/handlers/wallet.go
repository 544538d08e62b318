package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"saga-engine/internal/ledger/store/postgres"
	"saga-engine/internal/platform/apierr"
	"saga-engine/internal/platform/httpmw"
	"saga-engine/internal/platform/logging"
)

type createWalletRequest struct {
	UserID string `json:"userId"`
}

type walletResponse struct {
	WalletID  string `json:"walletId"`
	UserID    string `json:"userId"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"createdAt"`
}

// MakeCreateWalletHandler handles POST /wallets (spec.md §6).
func MakeCreateWalletHandler(deps Dependencies) gin.HandlerFunc {
	store := deps.GetWalletStore()

	return func(c *gin.Context) {
		var req createWalletRequest
		if err := httpmw.BindStrictJSON(c, &req); err != nil {
			apiErr := apierr.NewValidationError("invalid request body")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			apiErr := apierr.NewValidationError("userId must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		w, err := store.CreateWallet(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, postgres.ErrDuplicateUser) {
				apiErr := apierr.NewDuplicateUserError()
				c.JSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("failed to create wallet", err, map[string]interface{}{"user_id": userID.String()})
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusCreated, walletResponse{
			WalletID:  w.WalletID.String(),
			UserID:    userID.String(),
			Balance:   w.Balance,
			CreatedAt: w.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
}

// MakeGetWalletHandler handles GET /wallets/{id}.
func MakeGetWalletHandler(deps Dependencies) gin.HandlerFunc {
	store := deps.GetWalletStore()

	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidationError("id must be a valid UUID")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		w, err := store.GetWallet(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, postgres.ErrWalletNotFound) {
				apiErr := apierr.NewNotFoundError("wallet")
				c.JSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("failed to get wallet", err, map[string]interface{}{"wallet_id": id.String()})
			apiErr := apierr.NewInternalServerError()
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, walletResponse{
			WalletID:  w.WalletID.String(),
			UserID:    w.UserID.String(),
			Balance:   w.Balance,
			CreatedAt: w.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
}
