package handler

import (
	"stepstyle/internal/adapter/http/dto"
	"stepstyle/internal/adapter/http/middleware"
	"stepstyle/internal/core/ports"
	"stepstyle/pkg/apperror"
	"stepstyle/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetSummary handles GET /api/v1/wallet.
func (h *WalletHandler) GetSummary(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	summary, err := h.walletSvc.GetWalletSummary(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, summary)
}

// Earn handles POST /api/v1/wallet/earn.
func (h *WalletHandler) Earn(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.EarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.walletSvc.Earn(c.Request.Context(), ports.EarnRequest{
		AccountID:   accountID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, accountID.String())
	response.OK(c, result)
}
