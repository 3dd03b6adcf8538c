package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type balanceResponse struct {
	Balance int `json:"balance"`
}

type grantRequest struct {
	Amount int `json:"amount" binding:"required"`
}

type premiumRequest struct {
	Premium *bool `json:"premium" binding:"required"`
}

// GetAccount godoc
// @Summary Get the caller's account
// @Tags Accounts
// @Param X-User-ID header string true "caller id"
// @Success 200 {object} domain.Account
// @Router /accounts/me [get]
func (h *Handler) getAccount(c *gin.Context) {
	acc, err := h.svc.Ledger.Balance(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// ClaimReward godoc
// @Summary Claim the reward of an earned credit action
// @Tags Accounts
// @Param X-User-ID header string true "caller id"
// @Success 200 {object} balanceResponse
// @Router /accounts/me/reward [post]
func (h *Handler) claimReward(c *gin.Context) {
	balance, err := h.svc.Ledger.ClaimReward(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Balance: balance})
}

// GrantCredits godoc
// @Summary Grant credits to the caller
// @Tags Accounts
// @Param X-User-ID header string true "caller id"
// @Param request body grantRequest true "amount"
// @Success 200 {object} balanceResponse
// @Failure 400 {object} errorResponse
// @Router /accounts/me/grant [post]
func (h *Handler) grantCredits(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	balance, err := h.svc.Ledger.Grant(c.Request.Context(), userID(c), req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Balance: balance})
}

// SetPremium godoc
// @Summary Enable or disable premium for the caller
// @Description Premium accounts are never charged
// @Tags Accounts
// @Param X-User-ID header string true "caller id"
// @Param request body premiumRequest true "premium flag"
// @Success 200 {object} domain.Account
// @Router /accounts/me/premium [put]
func (h *Handler) setPremium(c *gin.Context) {
	var req premiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	acc, err := h.svc.Ledger.SetPremium(c.Request.Context(), userID(c), *req.Premium)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}
