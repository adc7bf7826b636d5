package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trade-advisor/internal/engine"
	"trade-advisor/internal/market"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
)

// RecommendRequest is the POST /api/v1/recommend body.
type RecommendRequest struct {
	Symbol             string                  `json:"symbol" binding:"required"`
	Style              string                  `json:"style" binding:"required"`
	Capital            float64                 `json:"capital"`
	HistoricalAccuracy *float64                `json:"historical_accuracy"`
	Signals            []signal.StrategySignal `json:"signals" binding:"required"`
	Candles            []market.Candle         `json:"candles" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	style, ok := profile.ValidateStyle(req.Style)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trading style: " + req.Style})
		return
	}

	rec, err := s.engine.Recommend(engine.Input{
		Symbol:             req.Symbol,
		Style:              style,
		Signals:            req.Signals,
		Candles:            req.Candles,
		Capital:            req.Capital,
		HistoricalAccuracy: req.HistoricalAccuracy,
	})
	if err != nil {
		if engine.IsContractViolation(err) {
			s.log.Error("recommendation contract violation", "symbol", req.Symbol, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	s.cache.Put(c.Request.Context(), rec)

	if s.repo != nil {
		if err := s.repo.Save(c.Request.Context(), rec); err != nil {
			// Persistence failure must not block the response.
			s.log.Error("failed to persist recommendation", "id", rec.ID, "error", err)
		}
	}

	s.hub.BroadcastRecommendation(rec)

	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleProfiles(c *gin.Context) {
	type profileView struct {
		Style      string                    `json:"style"`
		Timeframes *profile.TimeframeProfile `json:"timeframes"`
		Risk       *profile.RiskProfile      `json:"risk"`
	}

	styles := s.registry.Styles()
	out := make([]profileView, 0, len(styles))
	for _, style := range styles {
		tp, rp, err := s.registry.Resolve(style)
		if err != nil {
			continue
		}
		out = append(out, profileView{Style: string(style), Timeframes: tp, Risk: rp})
	}

	c.JSON(http.StatusOK, gin.H{"profiles": out})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "audit trail disabled"})
		return
	}

	symbol := c.Param("symbol")
	styleParam := c.Query("style")
	if styleParam != "" {
		if _, ok := profile.ValidateStyle(styleParam); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trading style: " + styleParam})
			return
		}
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	records, err := s.repo.ListBySymbol(c.Request.Context(), symbol, profile.Style(styleParam), limit)
	if err != nil {
		s.log.Error("failed to load recommendation history", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "recommendations": records})
}

func (s *Server) handleLatest(c *gin.Context) {
	symbol := c.Param("symbol")
	styleParam := c.DefaultQuery("style", string(profile.StyleBalanced))

	style, ok := profile.ValidateStyle(styleParam)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown trading style: " + styleParam})
		return
	}

	rec := s.cache.Get(c.Request.Context(), symbol, style)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent recommendation for " + symbol})
		return
	}

	c.JSON(http.StatusOK, rec)
}
