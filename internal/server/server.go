package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/cache"
	"github.com/wudi/linkpreview/internal/config"
	"github.com/wudi/linkpreview/internal/fetch"
	"github.com/wudi/linkpreview/internal/imageproxy"
	"github.com/wudi/linkpreview/internal/logging"
	"github.com/wudi/linkpreview/internal/metrics"
	"github.com/wudi/linkpreview/internal/middleware"
	"github.com/wudi/linkpreview/internal/preview"
)

// Server wires the preview and image services behind the response cache and
// serves them alongside an optional admin listener.
type Server struct {
	config      *config.Config
	store       cache.Store
	memory      *cache.MemoryStore // nil when the bounded store is in use
	interceptor *cache.Interceptor
	extractor   *preview.Extractor
	images      *imageproxy.Service
	metrics     *metrics.Collector

	handler     http.Handler
	httpServer  *http.Server
	adminServer *http.Server
	startTime   time.Time
	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
}

// New creates a server from cfg.
func New(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: nil config")
	}

	s := &Server{
		config:    cfg,
		metrics:   metrics.NewCollector(),
		startTime: time.Now(),
	}

	var parser preview.Parser = preview.PatternParser{}
	if cfg.Preview.Parser == config.ParserHTML {
		parser = preview.HTMLParser{}
	}
	pages := fetch.New(fetch.Options{
		UserAgent: cfg.Preview.UserAgent,
		Timeout:   cfg.Preview.Timeout,
		MaxBytes:  cfg.Preview.MaxDocumentSize,
	})
	s.extractor = preview.NewExtractor(pages, parser, preview.NewCollator(cfg.Preview.BaseURL))

	images := fetch.New(fetch.Options{
		UserAgent: cfg.Image.UserAgent,
		Timeout:   cfg.Image.Timeout,
		MaxBytes:  cfg.Image.MaxImageSize,
	})
	s.images = imageproxy.New(images, nil)

	if cfg.Cache.Enabled {
		s.initCache()
	}

	s.handler = s.buildHandler()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Admin.Enabled {
		s.adminServer = &http.Server{
			Addr:         cfg.Admin.Address,
			Handler:      s.AdminHandler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return s, nil
}

func (s *Server) initCache() {
	cc := s.config.Cache
	if cc.MaxEntries > 0 {
		s.store = cache.NewLRUStore(cc.MaxEntries, cc.TTL)
	} else {
		s.memory = cache.NewMemoryStore()
		s.store = s.memory
		logging.Warn("Response cache is unbounded; memory grows with distinct URLs until entries expire",
			zap.Duration("ttl", cc.TTL),
			zap.Duration("sweep_interval", cc.SweepInterval),
		)
	}

	s.interceptor = cache.NewInterceptor(s.store, cache.InterceptorConfig{
		TTL:         cc.TTL,
		MaxBodySize: cc.MaxBodySize,
		Header:      cc.Header,
	})
	s.interceptor.OnResult(func(r cache.Result) {
		s.metrics.RecordCacheResult(string(r))
	})
	s.metrics.RegisterCacheSize(func() int { return s.store.Stats().Size })
}

// buildHandler assembles the public middleware chain, outermost first.
func (s *Server) buildHandler() http.Handler {
	cacheHeader := s.config.Cache.Header
	if cacheHeader == "" {
		cacheHeader = cache.DefaultHeader
	}

	b := middleware.NewBuilder().
		Use(middleware.Recovery()).
		Use(middleware.RequestID()).
		Use(middleware.LoggingWithConfig(middleware.LoggingConfig{CacheHeader: cacheHeader})).
		Use(middleware.Metrics(s.metrics, routePaths...))
	if s.interceptor != nil {
		b.Use(s.interceptor.Middleware())
	}
	return b.Handler(s.router())
}

// Handler returns the public handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the sweeper and both listeners. It returns once the listeners
// have had a moment to bind, or with the first startup error.
func (s *Server) Start() error {
	errCh := make(chan error, 2)

	if s.memory != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopSweeper = cancel
		s.sweeperDone = make(chan struct{})
		go func() {
			defer close(s.sweeperDone)
			s.memory.Run(ctx, s.config.Cache.SweepInterval)
		}()
	}

	go func() {
		logging.Info("Starting link preview server", zap.String("address", s.config.Server.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	if s.adminServer != nil {
		go func() {
			logging.Info("Starting admin server", zap.String("address", s.config.Admin.Address))
			if err := s.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("admin server error: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		// Give servers a moment to start
	}
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts down
// gracefully.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logging.Info("Shutting down gracefully...", zap.String("signal", sig.String()))

	return s.Shutdown(s.config.Server.ShutdownTimeout)
}

// Shutdown gracefully shuts down the servers and stops the sweeper. Cached
// entries are discarded with the process.
func (s *Server) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			logging.Error("Admin server shutdown error", zap.Error(err))
		}
	}

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Error("HTTP server shutdown error", zap.Error(err))
	}

	if s.stopSweeper != nil {
		s.stopSweeper()
		<-s.sweeperDone
	}

	logging.Info("Server shutdown complete")
	return err
}
