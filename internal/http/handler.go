package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DougGuttenberg/halacha-helper/internal/domain"
	"github.com/DougGuttenberg/halacha-helper/internal/feedback"
	"github.com/DougGuttenberg/halacha-helper/internal/logging"
)

// AskPipeline is the slice of the pipeline controller the handler consumes.
type AskPipeline interface {
	Answer(ctx context.Context, req *domain.AskRequest) (*domain.AskResponse, error)
}

// FeedbackStore abstracts feedback persistence for testability.
type FeedbackStore interface {
	Add(ctx context.Context, e feedback.Entry) (*feedback.Entry, error)
	Recent(ctx context.Context, limit int) ([]feedback.Entry, error)
}

// Handler implements the /api/ask, /api/feedback and /healthz endpoints.
type Handler struct {
	pipeline AskPipeline
	feedback FeedbackStore
}

func NewHandler(p AskPipeline, fb FeedbackStore) *Handler {
	return &Handler{pipeline: p, feedback: fb}
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Ask(c echo.Context) error {
	ctx := c.Request().Context()
	start := time.Now()

	var req domain.AskRequest
	if err := c.Bind(&req); err != nil {
		return respondAppError(c, domain.NewValidationError("invalid JSON body"))
	}
	if err := req.Validate(); err != nil {
		return respondAppError(c, err)
	}

	resp, err := h.pipeline.Answer(ctx, &req)
	if err != nil {
		slog.ErrorContext(ctx, "ask failed",
			"request_id", logging.RequestID(ctx),
			"error", err,
		)
		return respondAppError(c, err)
	}

	slog.InfoContext(ctx, "ask done",
		"request_id", logging.RequestID(ctx),
		"phase", resp.Phase,
		"can_answer", resp.CanAnswer,
		"from_cache", resp.FromCache,
		"sources_found", resp.SourcesFound,
		"total_ms", time.Since(start).Milliseconds(),
	)

	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) AddFeedback(c echo.Context) error {
	ctx := c.Request().Context()

	var e feedback.Entry
	if err := c.Bind(&e); err != nil {
		return respondAppError(c, domain.NewValidationError("invalid JSON body"))
	}
	if e.Question == "" {
		return respondAppError(c, domain.NewValidationError("question is required"))
	}

	saved, err := h.feedback.Add(ctx, e)
	if err != nil {
		slog.ErrorContext(ctx, "save feedback failed", "error", err)
		return respondAppError(c, domain.NewInternalError("save feedback", err))
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) ListFeedback(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := h.feedback.Recent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "list feedback failed", "error", err)
		return respondAppError(c, domain.NewInternalError("list feedback", err))
	}
	if entries == nil {
		entries = []feedback.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func respondAppError(c echo.Context, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.StatusCode, domain.ErrorResponse{
			Error: appErr.Message,
			Code:  string(appErr.Category),
		})
	}
	return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{
		Error: "internal server error",
		Code:  string(domain.ErrCatUnknown),
	})
}
