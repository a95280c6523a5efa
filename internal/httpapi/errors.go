package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"baitboard/internal/calls"
	"baitboard/pkg/logger"
)

// Error taxonomy for the dashboard API. Handlers return these; respondError
// maps them to status codes and `{error, code, details?}` bodies. Anything
// unrecognized is a 500 with a redacted message outside dev.

type ValidationError struct {
	Msg     string
	Details map[string]string
}

func (e ValidationError) Error() string { return e.Msg }

type AuthError struct {
	Msg       string
	Forbidden bool
}

func (e AuthError) Error() string { return e.Msg }

type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string { return e.Resource + " not found" }

type DatabaseError struct {
	Op  string
	Err error

	// Unavailable marks connectivity failures, rendered 503 instead of 500.
	Unavailable bool
}

func (e DatabaseError) Error() string { return fmt.Sprintf("database %s: %v", e.Op, e.Err) }
func (e DatabaseError) Unwrap() error { return e.Err }

type ExternalServiceError struct {
	Service string
	Err     error
}

func (e ExternalServiceError) Error() string { return fmt.Sprintf("%s: %v", e.Service, e.Err) }
func (e ExternalServiceError) Unwrap() error { return e.Err }

func respondError(c *gin.Context, env string, err error) {
	var (
		ve ValidationError
		ae AuthError
		nf NotFoundError
		de DatabaseError
		xe ExternalServiceError
	)
	switch {
	case errors.As(err, &ve):
		body := gin.H{"error": ve.Msg, "code": "validation_error"}
		if len(ve.Details) > 0 {
			body["details"] = ve.Details
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)

	case errors.As(err, &ae):
		status, code := http.StatusUnauthorized, "unauthorized"
		if ae.Forbidden {
			status, code = http.StatusForbidden, "forbidden"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": ae.Msg, "code": code})

	case errors.As(err, &nf):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": nf.Error(), "code": "not_found"})

	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found", "code": "not_found"})

	case errors.Is(err, calls.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})

	case errors.As(err, &de):
		logger.FromGin(c).Error("database error", "op", de.Op, "err", de.Err)
		status := http.StatusInternalServerError
		if de.Unavailable {
			status = http.StatusServiceUnavailable
		}
		c.AbortWithStatusJSON(status, gin.H{"error": "database error", "code": "database_error"})

	case errors.As(err, &xe):
		logger.FromGin(c).Error("upstream error", "service", xe.Service, "err", xe.Err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": xe.Service + " unavailable", "code": "external_service_error"})

	default:
		logger.FromGin(c).Error("unhandled error", "err", err)
		msg := "internal error"
		if env == "local" || env == "dev" {
			msg = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg, "code": "internal"})
	}
}
