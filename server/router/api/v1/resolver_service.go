package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aico-ai/aico/store"
)

// maxMessageBytes bounds resolve payloads; longer messages carry no extra
// signal for thread resolution.
const maxMessageBytes = 16 * 1024

type resolveRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type appendMessageRequest struct {
	UserID      string `json:"user_id"`
	ThreadID    string `json:"thread_id"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
}

// handleResolve decides where an incoming message belongs in the user's
// conversation graph. It always answers 200 with a resolution; degradation
// shows up as a FALLBACK reason, never as a 5xx.
func (s *APIV1Service) handleResolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if len(req.Message) > maxMessageBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "message too large")
	}

	if s.Exporter != nil {
		s.Exporter.ResolveStarted()
		defer s.Exporter.ResolveFinished()
	}

	resolution := s.Resolver.Resolve(c.Request().Context(), req.UserID, req.Message)
	return c.JSON(http.StatusOK, resolution)
}

// handleHealth reports adapter availability and cache effectiveness. The
// service is "degraded", not down, while any adapter is failing.
func (s *APIV1Service) handleHealth(c echo.Context) error {
	services := s.Status.Snapshot()
	status := "healthy"
	for _, state := range services {
		if !state.Available {
			status = "degraded"
			break
		}
	}

	caches := map[string]any{}
	if s.EmbedCache != nil {
		caches["embedding"] = s.EmbedCache.Stats()
	}
	if s.Contexts != nil {
		caches["context"] = s.Contexts.CacheStats()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":   status,
		"services": services,
		"caches":   caches,
	})
}

// handleAppendMessage persists a message into the local working store and
// invalidates the user's cached contexts. Only mounted in stand-alone mode.
func (s *APIV1Service) handleAppendMessage(c echo.Context) error {
	var req appendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ThreadID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and thread_id are required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	messageType := store.MessageType(req.MessageType)
	switch messageType {
	case store.MessageTypeUserInput, store.MessageTypeAIResponse, store.MessageTypeOther:
	case "":
		messageType = store.MessageTypeUserInput
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown message_type")
	}

	record := &store.MessageRecord{
		UserID:    req.UserID,
		ThreadID:  req.ThreadID,
		Type:      messageType,
		Content:   req.Content,
		Timestamp: time.Now().UTC(),
	}
	if err := s.Working.Append(c.Request().Context(), record); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store message")
	}
	if s.Contexts != nil {
		s.Contexts.Invalidate(req.UserID)
	}

	response := map[string]string{"status": "stored"}
	if s.Sentiment != nil && messageType == store.MessageTypeUserInput {
		if result := s.Sentiment.Analyze(c.Request().Context(), req.Content); result.OK {
			response["sentiment"] = result.Label
		}
	}
	return c.JSON(http.StatusCreated, response)
}
