package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cafe/internal/access"
	"cafe/internal/apperr"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *CafeAPI) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}

	token, expires, id, err := a.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires,
		"user":       id,
	})
}

func (a *CafeAPI) Account(c *gin.Context) {
	id, ok := access.IdentityFrom(c.Request.Context())
	if !ok {
		a.respondError(c, apperr.Unauthenticated("account", "authentication required"))
		return
	}
	c.JSON(http.StatusOK, id)
}

// Logout only acknowledges; tokens are stateless and expire on their own.
func (a *CafeAPI) Logout(c *gin.Context) {
	if _, ok := access.IdentityFrom(c.Request.Context()); !ok {
		a.respondError(c, apperr.Unauthenticated("logout", "authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
