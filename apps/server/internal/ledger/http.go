package ledger

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golf-lite/apps/server/internal/auth"

	"github.com/gin-gonic/gin"
)

type HTTPHandler struct {
	auth   auth.Service
	ledger Service
}

type upsertReplayRoundRequest struct {
	Events  []EventItem    `json:"events"`
	Summary map[string]any `json:"summary"`
}

func NewHTTPHandler(authService auth.Service, ledgerService Service) *HTTPHandler {
	return &HTTPHandler{
		auth:   authService,
		ledger: ledgerService,
	}
}

func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	for _, source := range []Source{SourceLive, SourceReplay} {
		group := r.Group("/api/history/" + string(source))
		group.GET("/recent", h.handleRecent(source))
		group.GET("/stats", h.handleStats(source))
		group.GET("/rounds/:round_id", h.handleGetRound(source))
		group.POST("/rounds/:round_id/save", h.handleSetSaved(source, true))
		group.DELETE("/rounds/:round_id/save", h.handleSetSaved(source, false))
	}
	r.POST("/api/history/replay/rounds/:round_id", h.handleUpsertReplayRound)
}

func (h *HTTPHandler) handleRecent(source Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.resolveUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		limit := parseLimit(c.Query("limit"))
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		items, err := h.ledger.ListRecent(ctx, userID, source, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query recent rounds failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// handleStats aggregates the retained history window. Trimmed rounds fall out
// of the numbers, so these are rolling stats, not lifetime totals.
func (h *HTTPHandler) handleStats(source Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.resolveUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		items, err := h.ledger.ListRecent(ctx, userID, source, 100)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query recent rounds failed"})
			return
		}

		rounds := 0
		wins := 0
		gamesFinished := 0
		totalAdjusted := 0.0
		for _, item := range items {
			rounds++
			if rank, ok := item.Summary["my_rank"].(float64); ok && rank == 1 {
				wins++
			}
			if over, ok := item.Summary["game_over"].(bool); ok && over {
				gamesFinished++
			}
			if adj, ok := item.Summary["my_adjusted"].(float64); ok {
				totalAdjusted += adj
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"source":         source,
			"rounds":         rounds,
			"round_wins":     wins,
			"games_finished": gamesFinished,
			"total_adjusted": int(totalAdjusted),
		})
	}
}

func (h *HTTPHandler) handleGetRound(source Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.resolveUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}
		roundID := strings.TrimSpace(c.Param("round_id"))
		if roundID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing round id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		events, err := h.ledger.GetRoundEvents(ctx, userID, source, roundID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query round events failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"round_id": roundID,
			"source":   source,
			"events":   events,
		})
	}
}

func (h *HTTPHandler) handleSetSaved(source Source, saved bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.resolveUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}
		roundID := strings.TrimSpace(c.Param("round_id"))
		if roundID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing round id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.ledger.SetSaved(ctx, userID, source, roundID, saved); err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
			case errors.Is(err, ErrSavedLimitReach):
				c.JSON(http.StatusConflict, gin.H{"error": "saved round limit reached"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "update save state failed"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"round_id": roundID,
			"source":   source,
			"is_saved": saved,
		})
	}
}

func (h *HTTPHandler) handleUpsertReplayRound(c *gin.Context) {
	userID, ok := h.resolveUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
		return
	}
	roundID := strings.TrimSpace(c.Param("round_id"))
	if roundID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing round id"})
		return
	}

	var req upsertReplayRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 8*time.Second)
	defer cancel()
	if err := h.ledger.UpsertReplayRound(ctx, userID, roundID, req.Events, req.Summary); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upsert replay round failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"round_id": roundID,
		"source":   SourceReplay,
		"saved":    true,
	})
}

func (h *HTTPHandler) resolveUserID(c *gin.Context) (uint64, bool) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		return 0, false
	}
	userID, _, ok := h.auth.ResolveSession(token)
	if !ok {
		return 0, false
	}
	return userID, true
}

func parseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 20
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 20
	}
	if n > 100 {
		return 100
	}
	return n
}
