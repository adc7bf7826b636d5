package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"trade-advisor/internal/database"
	"trade-advisor/internal/engine"
	"trade-advisor/internal/logging"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/store"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	AllowedOrigins  []string `json:"allowed_origins"`
	RateLimitPerMin int      `json:"rate_limit_per_min"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		AllowedOrigins:  []string{"*"},
		RateLimitPerMin: 120,
	}
}

// RateLimiter is a simple per-IP sliding window limiter.
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether another request from key fits in the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	// Evict clients that went idle, so the map does not grow unbounded.
	if now.Sub(rl.lastSweep) >= rl.window {
		for k, ts := range rl.requests {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(rl.requests, k)
			}
		}
		rl.lastSweep = now
	}

	kept := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rl.requests[key] = kept

	if len(kept) >= rl.limit {
		return false
	}
	rl.requests[key] = append(kept, now)
	return true
}

// Server exposes the recommendation engine over HTTP and WebSocket.
type Server struct {
	cfg      ServerConfig
	engine   *engine.Engine
	registry *profile.Registry
	cache    *store.RecommendationCache
	repo     *database.RecommendationRepository
	hub      *WSHub
	log      *logging.Logger

	httpServer *http.Server
	limiter    *RateLimiter
}

// NewServer wires the HTTP surface. repo may be nil when the audit trail is
// disabled.
func NewServer(
	cfg ServerConfig,
	eng *engine.Engine,
	registry *profile.Registry,
	cache *store.RecommendationCache,
	repo *database.RecommendationRepository,
	log *logging.Logger,
) *Server {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = DefaultServerConfig().RateLimitPerMin
	}

	s := &Server{
		cfg:      cfg,
		engine:   eng,
		registry: registry,
		cache:    cache,
		repo:     repo,
		hub:      NewWSHub(log),
		log:      log.WithComponent("api"),
		limiter:  NewRateLimiter(cfg.RateLimitPerMin, time.Minute),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(s.rateLimitMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	s.registerRoutes(router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)
	router.GET("/ws", s.handleWebSocket)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/recommend", s.handleRecommend)
		v1.GET("/profiles", s.handleProfiles)
		v1.GET("/recommendations/:symbol", s.handleHistory)
		v1.GET("/recommendations/:symbol/latest", s.handleLatest)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, reqLog := logging.NewContext(c.Request.Context(), s.log)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		reqLog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// Start runs the WebSocket hub and the HTTP listener. Blocks until the
// listener stops.
func (s *Server) Start() error {
	go s.hub.Run()
	s.log.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
