package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apperrors "github.com/kbukum/asthma-api/errors"
	"github.com/kbukum/asthma-api/logger"
	"github.com/kbukum/asthma-api/server/endpoint"
	"github.com/kbukum/asthma-api/server/middleware"
)

// Server is the HTTP server: a Gin engine behind a ServeMux, wrapped with
// header-level middleware and h2c so HTTP/2 works without TLS.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	outer      []middleware.Middleware
	config     Config
	log        *logger.Logger

	mu      sync.Mutex
	addr    string
	running bool
}

// New creates a new Server. No middleware is applied until
// ApplyMiddleware is called.
func New(cfg Config, log *logger.Logger) *Server {
	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log = log.WithComponent("server")
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", logger.Fields(logger.FieldError, err.Error()))
		_ = engine.SetTrustedProxies(nil)
	}

	mux := http.NewServeMux()
	mux.Handle("/", engine)

	s := &Server{
		engine: engine,
		mux:    mux,
		config: cfg,
		log:    log,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the full handler chain: header middleware, then the
// mux and Gin, wrapped with h2c. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}
	return h2c.NewHandler(middleware.Chain(s.outer...)(s.mux), h2s)
}

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	tlsCfg, err := s.config.TLS.ServerConfig()
	if err != nil {
		return fmt.Errorf("server tls: %w", err)
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.addr = listener.Addr().String()
	s.httpServer.Handler = s.Handler()
	s.httpServer.TLSConfig = tlsCfg
	s.running = true

	go func() {
		var err error
		if tlsCfg != nil {
			err = s.httpServer.ServeTLS(listener, "", "")
		} else {
			err = s.httpServer.Serve(listener)
		}
		if err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr":   s.addr,
		"tls":    tlsCfg != nil,
		"routes": len(s.engine.Routes()),
	})
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.running = false
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return s.httpServer.Addr
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ApplyMiddleware applies the standard middleware stack: security headers,
// CORS and the body-size limit in front of Gin; recovery, request-ID and
// request logging inside it. extra handlers run after those.
func (s *Server) ApplyMiddleware(extra ...gin.HandlerFunc) {
	s.outer = []middleware.Middleware{
		middleware.SecurityHeaders(),
		middleware.CORS(&s.config.CORS),
	}
	if s.config.MaxBodySize != "" {
		s.outer = append(s.outer, middleware.BodySizeLimit(s.config.MaxBodySize))
	}
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.RequestLogger(s.log))
	if len(extra) > 0 {
		s.engine.Use(extra...)
	}
}

// RegisterDefaultEndpoints registers /health and /info, and answers
// unknown routes with the JSON error envelope.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/info", endpoint.Info(serviceName))
	s.engine.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, apperrors.NotFound("route"))
	})
	s.engine.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, apperrors.MethodNotAllowed())
	})
}

// ApplyDefaults applies the standard middleware stack and registers default endpoints.
func (s *Server) ApplyDefaults(serviceName string, checker endpoint.HealthChecker, extra ...gin.HandlerFunc) {
	s.ApplyMiddleware(extra...)
	s.RegisterDefaultEndpoints(serviceName, checker)
}
