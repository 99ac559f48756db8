package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultSegmentLimit = 5

type segmentSearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

// handleSegmentSearch returns conversation segments semantically close to
// the query text. Degradation yields an empty list, flagged in the response.
func (s *APIV1Service) handleSegmentSearch(c echo.Context) error {
	var req segmentSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.Limit <= 0 {
		req.Limit = defaultSegmentLimit
	}

	ctx := c.Request().Context()
	embedding := s.Embedder.Embed(ctx, req.Query)
	if !embedding.OK {
		return c.JSON(http.StatusOK, map[string]any{
			"segments": []any{},
			"degraded": true,
		})
	}

	segments := s.Semantic.QueryNearby(ctx, req.UserID, embedding.Vector, req.Limit)
	return c.JSON(http.StatusOK, map[string]any{
		"segments": segments,
		"degraded": false,
	})
}
