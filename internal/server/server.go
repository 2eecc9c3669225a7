// Package server exposes the walletd HTTP API: signing operations,
// session management, and chain metadata. Bodies for signing endpoints
// pass through stamped and untouched; the server never re-signs or
// rewrites what a client stamped.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/executor"
	"github.com/votis/walletd/internal/session"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// Options carries the server's collaborators and listen settings.
type Options struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// OrganizationID is the default organization for requests that do
	// not name one.
	OrganizationID string

	Registry *chains.Registry
	Broker   *session.Broker
	Executor *executor.Executor

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the walletd HTTP API.
type Server struct {
	logger *zap.Logger
	router *gin.Engine

	listenAddr      string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	organizationID string
	registry       *chains.Registry
	broker         *session.Broker
	executor       *executor.Executor
}

// New creates the server and wires its routes.
func New(logger *zap.Logger, opts Options) (*Server, error) {
	if opts.Registry == nil || opts.Broker == nil || opts.Executor == nil {
		return nil, walleterr.Wrap(walleterr.ErrConfigInvalid, "server requires a registry, broker, and executor")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		logger:          logger,
		router:          router,
		listenAddr:      opts.ListenAddr,
		readTimeout:     opts.ReadTimeout,
		writeTimeout:    opts.WriteTimeout,
		shutdownTimeout: opts.ShutdownTimeout,
		organizationID:  opts.OrganizationID,
		registry:        opts.Registry,
		broker:          opts.Broker,
		executor:        opts.Executor,
	}
	s.setupRoutes(opts.Gatherer)
	return s, nil
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/healthz", s.handleHealth)
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/v1")

	v1.POST("/sign/transaction", s.handleOperation(opSignTransaction))
	v1.POST("/sign/payload", s.handleOperation(opSignRawPayload))
	v1.POST("/authenticators", s.handleOperation(opCreateAuthenticator))
	v1.POST("/wallets", s.handleOperation(opCreateWallet))
	v1.POST("/signup", s.handleOperation(opCreateSubOrganization))

	v1.POST("/sessions/readonly", s.handleCreateReadOnlySession)
	v1.POST("/sessions/client", s.handleCreateClientSession)
	v1.POST("/sessions/server", s.handleCreateServerSession)
	v1.DELETE("/sessions", s.handleInvalidateSession)

	v1.GET("/chains", s.handleListChains)
	v1.GET("/chains/:identifier", s.handleResolveChain)
	v1.POST("/chains/:identifier/address", s.handleAddressPreview)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.listenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return walleterr.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return walleterr.Wrap(err, "http server shutdown")
	}
	return nil
}
