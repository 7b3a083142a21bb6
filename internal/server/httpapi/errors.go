package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tourmate-app/backend/internal/common"
)

// statusFor maps the service error taxonomy to HTTP status codes. Unknown
// errors are 500 and their details stay out of the response body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrAlreadyMember):
		return http.StatusConflict, "already a member"
	case errors.Is(err, common.ErrSessionNotJoinable):
		return http.StatusConflict, "session is not joinable"
	case errors.Is(err, common.ErrNotForming):
		return http.StatusConflict, "session is not forming"
	case errors.Is(err, common.ErrSessionNotActive):
		return http.StatusConflict, "session is not active"
	case errors.Is(err, common.ErrEmptyTeam):
		return http.StatusConflict, "team is empty"
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, "conflicting update"
	case errors.Is(err, common.ErrNotLeader):
		return http.StatusForbidden, "leader only"
	case errors.Is(err, common.ErrNotTeamMember):
		return http.StatusForbidden, "not a team member"
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrUnavailable):
		return http.StatusServiceUnavailable, "temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *HTTPServer) writeError(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": msg})
}
