package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"folio/internal/analytics"
	"folio/internal/contact"
	"folio/internal/core"
	"folio/internal/resume"
)

const (
	resumeCacheControl = "public, s-maxage=300, stale-while-revalidate=600"
	statsCacheControl  = "public, s-maxage=600, stale-while-revalidate=1200"
)

// Handler holds the HTTP handlers
type Handler struct {
	resume    *resume.Service
	contact   *contact.Service
	analytics *analytics.Service
	origin    string
}

// NewHandler creates a new handler over the given services
func NewHandler(services Services, origin string) *Handler {
	return &Handler{
		resume:    services.Resume,
		contact:   services.Contact,
		analytics: services.Analytics,
		origin:    origin,
	}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Contact handles POST /api/contact.
// The caller is rate limited before the body is read.
func (h *Handler) Contact(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.contact.Admit(ctx, core.GetClientIP(ctx)); err != nil {
		return handleError(c, err)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, err)
	}

	receipt, err := h.contact.Submit(ctx, body)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, core.NewEnvelope(receipt, "Message sent successfully"))
}

// Resume handles GET /api/resume. ?refresh=true bypasses the cache.
func (h *Handler) Resume(c echo.Context) error {
	data, err := h.resume.Data(c.Request().Context(), c.QueryParam("refresh") == "true")
	if err != nil {
		return handleError(c, core.NewInternalError("Failed to retrieve resume data", err))
	}
	c.Response().Header().Set("Cache-Control", resumeCacheControl)
	return c.JSON(http.StatusOK, core.NewEnvelope(data, "Resume data retrieved successfully"))
}

// ResumeStats handles GET /api/resume/stats
func (h *Handler) ResumeStats(c echo.Context) error {
	stats, err := h.resume.Stats(c.Request().Context())
	if err != nil {
		return handleError(c, core.NewInternalError("Failed to retrieve resume stats", err))
	}
	c.Response().Header().Set("Cache-Control", statsCacheControl)
	return c.JSON(http.StatusOK, core.NewEnvelope(stats, "Resume stats retrieved successfully"))
}

// AnalyticsEvents handles POST /api/analytics/events
func (h *Handler) AnalyticsEvents(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, err)
	}
	result, err := h.analytics.Ingest(c.Request().Context(), body)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, core.NewEnvelope(result, "Analytics events processed successfully"))
}

// AnalyticsQuery handles GET /api/analytics/events.
// With a sessionId it returns recent events, otherwise a summary.
func (h *Handler) AnalyticsQuery(c echo.Context) error {
	if c.QueryParam("sessionId") != "" {
		return c.JSON(http.StatusOK, core.NewEnvelope(h.analytics.Recent(), ""))
	}
	return c.JSON(http.StatusOK, core.NewEnvelope(h.analytics.Summary(), "Analytics summary retrieved"))
}

// PageViews handles POST /api/analytics/pageviews
func (h *Handler) PageViews(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return handleError(c, err)
	}
	result, err := h.analytics.IngestPageViews(c.Request().Context(), body)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, core.NewEnvelope(result, "Page views processed successfully"))
}

// preflight answers CORS OPTIONS requests for a route.
func (h *Handler) preflight(methods string) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Response().Header()
		header.Set(echo.HeaderAccessControlAllowOrigin, h.origin)
		header.Set(echo.HeaderAccessControlAllowMethods, methods)
		header.Set(echo.HeaderAccessControlAllowHeaders, echo.HeaderContentType)
		return c.NoContent(http.StatusOK)
	}
}

// handleError converts errors to failure envelopes
func handleError(c echo.Context, err error) error {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatusCode() >= http.StatusInternalServerError {
			logError(c, err)
		}
		return c.JSON(appErr.HTTPStatusCode(), appErr.Envelope())
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, core.NewErrorEnvelope(httpErrorMessage(httpErr)))
	}

	// Fallback for unexpected errors
	logError(c, err)
	return c.JSON(http.StatusInternalServerError, core.NewErrorEnvelope("Internal server error"))
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and oversized bodies, in the same envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if err := handleError(c, err); err != nil {
		logError(c, err)
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok && msg != "" {
		return msg
	}
	return http.StatusText(he.Code)
}

func logError(c echo.Context, err error) {
	ctx := c.Request().Context()
	slog.ErrorContext(ctx, "request failed",
		"request_id", core.GetRequestID(ctx),
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"error", err,
	)
}
