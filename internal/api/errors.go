package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cafe/internal/apperr"
)

// respondError renders err as {"error": ...} with the status its kind maps to.
// Internal failures are logged and their detail withheld from the client.
func (a *CafeAPI) respondError(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	if code == http.StatusInternalServerError {
		a.log.Error().
			Err(err).
			Str("request_id", c.GetString(requestIDKey)).
			Str("path", c.FullPath()).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": apperr.Message(err)})
}

func (a *CafeAPI) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return uint(id), nil
}

// statusID reads status_id from the query string, falling back to the JSON body.
func statusID(c *gin.Context) (uint, error) {
	if raw := c.Query("status_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return 0, errors.New("status_id must be a positive integer")
		}
		return uint(id), nil
	}

	var body struct {
		StatusID uint `json:"status_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.StatusID == 0 {
		return 0, errors.New("status_id is required")
	}
	return body.StatusID, nil
}
