package http

import (
	"errors"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/guild-tickets/internal/observability"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// RegisterMiddlewares attaches panic recovery, error rendering and request logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics) {
	app.Use(errorHandlingMiddleware(logger))
	app.Use(observability.RequestLogger(logger, metrics))
}

func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeError(c, logger, err)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiber.Map{"code": codeForStatus(fiberErr.Code), "message": fiberErr.Message},
		})
	}

	domainErr := apperrors.ToDomainError(err)
	status := httpStatus(domainErr.Code)
	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message},
	})
}

func httpStatus(code string) int {
	switch code {
	case apperrors.CodeValidation:
		return fiber.StatusBadRequest
	case apperrors.CodePermissionDenied:
		return fiber.StatusForbidden
	case apperrors.CodeNotFound:
		return fiber.StatusNotFound
	case apperrors.CodeQuotaExceeded, apperrors.CodeCooldown:
		return fiber.StatusTooManyRequests
	case apperrors.CodeInvalidTransition:
		return fiber.StatusConflict
	case apperrors.CodeExternalResource:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed:
		return apperrors.CodeValidation
	default:
		return apperrors.CodeInternal
	}
}
