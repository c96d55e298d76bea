package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/crag-cast/internal/apperror"
	"github.com/i474232898/crag-cast/internal/crag"
	"github.com/i474232898/crag-cast/internal/logger"
	"github.com/i474232898/crag-cast/internal/metrics"
)

const serviceName = "crag-cast"

// Deps is what the HTTP layer needs from the rest of the service.
type Deps struct {
	Catalog *crag.Catalog
	Weather WeatherService
	Options Options
}

// errorBody is the payload of every failed request.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewApp builds the fiber app with error handling, request ids, panic
// recovery, health, metrics and the API routes. Extra middleware (the access
// log, for instance) runs after request ids are assigned.
func NewApp(deps Deps, middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          20 * time.Second,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(recover.New())
	for _, m := range middleware {
		app.Use(m)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      serviceName,
			"crags":        deps.Catalog.CragCount(),
			"weather_rows": deps.Catalog.WeatherRows(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	RegisterRoutes(app, deps)

	return app
}

// ErrorHandler renders AppErrors and fiber errors as structured JSON. Anything
// else is logged and reported as a bare 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	body := errorBody{
		Code:    string(apperror.CodeInternalUnexpected),
		Message: "internal server error",
	}

	var appErr *apperror.AppError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &appErr):
		status = appErr.HTTPStatus()
		body.Code = string(appErr.Code)
		body.Message = appErr.Message
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
		body.Code = codeForStatus(status)
		body.Message = fiberErr.Message
	}

	body.RequestID = c.GetRespHeader(fiber.HeaderXRequestID)

	if status >= fiber.StatusInternalServerError {
		logger.WithFields(logger.Fields{
			"request_id": body.RequestID,
			"path":       c.Path(),
			"status":     status,
			"error":      err.Error(),
		}).Error("request failed")
	}

	return c.Status(status).JSON(fiber.Map{"error": body})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "validation_invalid_request"
	case fiber.StatusNotFound:
		return "not_found_route"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		if status >= fiber.StatusInternalServerError {
			return string(apperror.CodeInternalUnexpected)
		}
		return "request_rejected"
	}
}

func errorBodyOf(err error) *errorBody {
	if appErr, ok := apperror.As(err); ok {
		return &errorBody{Code: string(appErr.Code), Message: appErr.Message}
	}
	return &errorBody{Code: string(apperror.CodeInternalUnexpected), Message: "weather lookup failed"}
}
