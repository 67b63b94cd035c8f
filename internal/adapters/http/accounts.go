package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/app"
	"github.com/kryptochat/relay/internal/domain"
)

type AccountsController struct {
	Accounts *app.Accounts
	limiter  *RegisterRateLimiter
}

func NewAccountsController(accounts *app.Accounts, limiter *RegisterRateLimiter) *AccountsController {
	return &AccountsController{
		Accounts: accounts,
		limiter:  limiter,
	}
}

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	PublicKey string `json:"publicKey"`
}

func (ac *AccountsController) Register(c *gin.Context) {
	if ac.limiter != nil && !ac.limiter.Allow(c.GetString("client_token")) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many registration attempts"})
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}

	acc, err := ac.Accounts.Register(req.Username, req.PublicKey)
	switch {
	case errors.Is(err, app.ErrAccountExists):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Msg("account register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "username": acc.Username})
}

func (ac *AccountsController) Search(c *gin.Context) {
	query := c.Param("query")
	acc, ok := ac.Accounts.Search(query)
	if !ok {
		log.Info().Str("module", "adapters.http").Str("query", query).Msg("user not found")
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found": true,
		"user": gin.H{
			"username":  acc.Username,
			"publicKey": acc.PublicKey,
		},
	})
}

func (ac *AccountsController) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": ac.Accounts.List()})
}
