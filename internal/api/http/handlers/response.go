package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-reporter/internal/api/dto"
	"github.com/spec-kit/civic-reporter/internal/auth"
	"github.com/spec-kit/civic-reporter/internal/service"
	apperrors "github.com/spec-kit/civic-reporter/pkg/util/errorutil"
)

// envelope is the success body shared by every endpoint. Errors use the same
// shape and are rendered by the error-handling middleware.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Message: message, Data: data})
}

type normalizer interface {
	Normalize()
}

// bindBody parses the JSON body into req, normalizes it and validates tags.
func bindBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return check(req)
}

// bindQuery parses query parameters into req and validates tags.
func bindQuery(c *fiber.Ctx, req any) error {
	if err := c.QueryParser(req); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	return check(req)
}

func check(req any) error {
	if n, ok := req.(normalizer); ok {
		n.Normalize()
	}
	fields, err := dto.Validate(req)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if len(fields) > 0 {
		details := make(map[string]any, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		return apperrors.NewValidationError("validation failed", details)
	}
	return nil
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func actorOf(principal *auth.Principal) service.Actor {
	return service.Actor{UserID: principal.User.ID, Role: principal.User.Role}
}

// viewerActor is the zero Actor for anonymous callers.
func viewerActor(c *fiber.Ctx) service.Actor {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.User != nil {
		return actorOf(principal)
	}
	return service.Actor{}
}

func viewerID(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.UserID()
	}
	return ""
}
