package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"eigenda-sidecar/internal/clients"
	"eigenda-sidecar/internal/config"
	"eigenda-sidecar/internal/db"
	"eigenda-sidecar/internal/handlers"
	"eigenda-sidecar/internal/kzg"
	"eigenda-sidecar/internal/repository"
	"eigenda-sidecar/internal/router"
	"eigenda-sidecar/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer owns every long-lived component of the sidecar.
type ServiceContainer struct {
	cfg    *config.Config
	logger *logrus.Logger

	// Database
	DB *gorm.DB

	// Repositories
	ProofRequestRepo repository.ProofRequestRepository

	// Clients
	Resolver  *clients.ResolverClient
	Retriever *clients.RetrieverClient
	Prover    *clients.ProverClient
	Verifier  *clients.VerifierClient
	Notifier  clients.Notifier

	// Services
	ProofRequestService *services.ProofRequestService
	ProofWorker         *services.ProofWorker
	MonitoringService   *services.MonitoringService

	// HTTP
	RPCServer  *rpc.Server
	HTTPServer *http.Server

	closers []func()
}

// NewLogger builds the process logger from config.
func NewLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// NewServiceContainer connects to every collaborator and wires the
// pipeline. Nothing runs until Start.
func NewServiceContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*ServiceContainer, error) {
	logger.Info("🚀 Initializing Service Container...")
	c := &ServiceContainer{cfg: cfg, logger: logger}

	if err := c.initDatabase(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	checker, err := c.initChecker()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize consistency checker: %w", err)
	}

	if err := c.initClients(ctx, checker.Form()); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := c.initServices(checker); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("✅ Service Container initialized successfully")
	return c, nil
}

func (c *ServiceContainer) initDatabase() error {
	gdb, err := db.InitDB(c.cfg.Database)
	if err != nil {
		return err
	}
	c.DB = gdb
	c.closers = append(c.closers, func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	c.ProofRequestRepo = repository.NewProofRequestRepository(gdb)
	c.logger.WithField("driver", c.cfg.Database.Driver).Info("✅ Database connected")
	return nil
}

func (c *ServiceContainer) initChecker() (*kzg.Checker, error) {
	form, err := kzg.ParsePayloadForm(c.cfg.EigenDA.PayloadForm)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	srs, err := kzg.LoadSRS(c.cfg.SRS.G1Path, c.cfg.SRS.G2Path, c.cfg.SRS.NumPoints)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"points":  c.cfg.SRS.NumPoints,
		"elapsed": time.Since(started).Round(time.Millisecond),
	}).Info("✅ SRS loaded")

	opts := []kzg.Option{kzg.WithLogger(c.logger)}
	if c.cfg.SRS.CacheDir != "" {
		cache, err := kzg.OpenPebbleLagrangeCache(c.cfg.SRS.CacheDir, nil)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = cache.Close() })
		opts = append(opts, kzg.WithLagrangeCache(cache))
	}
	return kzg.NewChecker(srs, form, opts...), nil
}

func (c *ServiceContainer) initClients(ctx context.Context, form kzg.PayloadForm) error {
	resolver, err := clients.NewResolverClient(ctx, c.cfg.Resolver.RPCEndpoint, c.cfg.Resolver.Method, c.logger)
	if err != nil {
		return err
	}
	c.Resolver = resolver
	c.closers = append(c.closers, resolver.Close)

	c.Retriever = clients.NewRetrieverClient(c.cfg.Retriever.ProxyURL, c.cfg.Retriever.Timeout, c.cfg.EigenDA.RelayKeys, c.logger)
	c.Prover = clients.NewProverClient(c.cfg.Prover.BaseURL, c.cfg.Prover.Timeout, c.cfg.Verifier.VerifierAddress, form, c.logger)

	if c.cfg.Worker.Preflight {
		verifier, eth, err := clients.DialVerifierClient(ctx, c.cfg.Verifier.RPCEndpoint,
			common.HexToAddress(c.cfg.Verifier.VerifierAddress),
			common.HexToAddress(c.cfg.Verifier.CallerAddress),
			c.logger)
		if err != nil {
			return err
		}
		c.Verifier = verifier
		c.closers = append(c.closers, eth.Close)
	}

	c.Notifier = clients.NopNotifier{}
	if c.cfg.NATS.URL != "" {
		notifier, err := clients.NewNATSNotifier(c.cfg.NATS.URL, c.cfg.NATS.SubjectPrefix, c.cfg.NATS.Timeout, c.logger)
		if err != nil {
			// 事件通知是可选的
			c.logger.WithError(err).Warn("⚠️ NATS unavailable, proof events will not be published")
		} else {
			c.Notifier = notifier
			c.closers = append(c.closers, notifier.Close)
		}
	}
	return nil
}

func (c *ServiceContainer) initServices(checker *kzg.Checker) error {
	svc, err := services.NewProofRequestService(c.ProofRequestRepo, c.cfg.Cache.QueryResults, c.logger)
	if err != nil {
		return err
	}
	c.ProofRequestService = svc

	var verifier clients.CertVerifier
	if c.Verifier != nil {
		verifier = c.Verifier
	}
	c.ProofWorker = services.NewProofWorker(
		c.ProofRequestRepo,
		c.Resolver,
		c.Retriever,
		verifier,
		checker,
		c.Prover,
		c.Notifier,
		c.cfg.Worker,
		c.logger,
	)
	c.MonitoringService = services.NewMonitoringService(c.DB, c.ProofRequestRepo, c.logger)

	c.RPCServer, err = handlers.NewRPCServer(handlers.NewProofAPI(svc, c.logger))
	if err != nil {
		return err
	}
	engine := router.SetupRouter(c.cfg.Server, c.RPCServer, handlers.NewHealthHandler(c.DB), c.logger)
	c.HTTPServer = &http.Server{
		Addr:              c.cfg.ListenAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Start launches the worker, the monitoring loop and the HTTP server. HTTP
// server failures are sent on the returned channel.
func (c *ServiceContainer) Start() <-chan error {
	errCh := make(chan error, 1)

	c.ProofWorker.Start()
	c.MonitoringService.Start()

	go func() {
		c.logger.WithField("addr", c.HTTPServer.Addr).Info("🌐 HTTP server listening")
		if err := c.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// Stop shuts down the HTTP server, then the worker, then every connection.
// A request the worker was processing stays queued for the next start.
func (c *ServiceContainer) Stop(ctx context.Context) {
	if c.HTTPServer != nil {
		if err := c.HTTPServer.Shutdown(ctx); err != nil {
			c.logger.WithError(err).Warn("⚠️ HTTP server shutdown")
		}
	}
	if c.RPCServer != nil {
		c.RPCServer.Stop()
	}
	if c.ProofWorker != nil {
		c.ProofWorker.Stop()
	}
	if c.MonitoringService != nil {
		c.MonitoringService.Stop()
	}
	c.Close()
	c.logger.Info("✅ Service Container stopped")
}

// Close releases connections in reverse order of creation.
func (c *ServiceContainer) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
