package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tkellner/homelab-manager/internal/api/middleware"
	"github.com/tkellner/homelab-manager/internal/apperr"
	"github.com/tkellner/homelab-manager/internal/authz"
	"github.com/tkellner/homelab-manager/internal/db"
)

// envelope is the uniform response shape every endpoint returns.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// fail renders err as the uniform error envelope. Internal errors are logged
// in full and masked from the client in release mode.
func (h *Handler) fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(err, apperr.Internal, "Internal server error")
	}

	if ae.Kind == apperr.Internal {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		if h.config.Server.Mode == "release" {
			ae = apperr.New(apperr.Internal, "Internal server error")
		}
	}

	c.JSON(statusFor(ae.Kind), envelope{
		Success: false,
		Message: ae.Message,
		Errors:  ae.Fields,
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Authentication:
		return http.StatusUnauthorized
	case apperr.Authorization:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// bindJSON decodes the payload and flattens binding failures into the
// field-level error list.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]apperr.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, apperr.FieldError{
					Field:   fe.Field(),
					Message: "failed on the '" + fe.Tag() + "' rule",
				})
			}
			return apperr.New(apperr.Validation, "Validation failed").WithFields(fields)
		}
		return apperr.Wrap(err, apperr.Validation, "Invalid request body")
	}
	return nil
}

func validationError(field, message string) error {
	return apperr.New(apperr.Validation, "Validation failed").
		WithFields([]apperr.FieldError{{Field: field, Message: message}})
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, validationError("id", "must be a positive integer")
	}
	return id, nil
}

// actor returns the authenticated actor; AuthRequired guarantees presence on
// protected routes.
func actor(c *gin.Context) authz.Actor {
	a, _ := middleware.Actor(c)
	return a
}

// storeErr maps repository sentinels onto the API error taxonomy.
func storeErr(err error, notFoundMsg, conflictMsg string) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperr.New(apperr.NotFound, notFoundMsg)
	case errors.Is(err, db.ErrDuplicate):
		return apperr.New(apperr.Conflict, conflictMsg)
	default:
		return err
	}
}
