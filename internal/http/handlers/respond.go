package handlers

import (
	"net/http"

	"campus-chat-be/pkg/errors"

	"github.com/gin-gonic/gin"
)

func statusOf(code errors.Code) int {
	switch code {
	case errors.CodeInvalidArgument, errors.CodeFailedPrecondition:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists:
		return http.StatusConflict
	case errors.CodePermissionDenied:
		return http.StatusForbidden
	case errors.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail maps a service error onto an HTTP response. Internal causes are not
// echoed to the client.
func fail(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	status := statusOf(code)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"message": msg, "code": code})
}
