package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/config"
	"github.com/votis/walletd/internal/custody"
	"github.com/votis/walletd/internal/executor"
	"github.com/votis/walletd/internal/keystore"
	"github.com/votis/walletd/internal/metrics"
	"github.com/votis/walletd/internal/retryqueue"
	"github.com/votis/walletd/internal/server"
	"github.com/votis/walletd/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the walletd HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	passphrase := config.Passphrase()
	if passphrase == "" {
		var err error
		passphrase, err = keystore.ReadPassphrase("Operator key passphrase: ")
		if err != nil {
			return err
		}
	}

	operator, err := keystore.Load(cfg.Keystore.KeyFile, passphrase)
	if err != nil {
		return err
	}

	client, err := custody.NewClient(cfg.Custody.BaseURL, &custody.ClientOptions{
		Timeout:       cfg.Custody.Timeout,
		RatePerSecond: cfg.Custody.RatePerSecond,
		Burst:         cfg.Custody.Burst,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	store := session.NewStore(logger, session.WithSweepObserver(func(removed int) {
		m.SessionsSwept.Add(float64(removed))
	}))
	defer store.Close()

	broker, err := session.NewBroker(store, client, operator, logger, &session.BrokerOptions{
		ReadOnlyTTL:  cfg.Sessions.ReadOnlyTTL,
		ReadWriteTTL: cfg.Sessions.ReadWriteTTL,
		Metrics:      m,
	})
	if err != nil {
		return err
	}

	queue := retryqueue.NewMemory(logger, cfg.Retry.QueueCapacity)
	exec, err := executor.New(client, logger, &executor.Options{Queue: queue, Metrics: m})
	if err != nil {
		return err
	}

	srv, err := server.New(logger, server.Options{
		ListenAddr:      cfg.Server.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		OrganizationID:  cfg.Custody.OrganizationID,
		Registry:        chains.NewRegistry(),
		Broker:          broker,
		Executor:        exec,
		Gatherer:        registry,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store.StartSweeper(ctx, cfg.Sessions.SweepInterval)

	logger.Info("walletd starting",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("organization_id", cfg.Custody.OrganizationID))

	return srv.Run(ctx)
}

//nolint:gochecknoinits // Cobra command registration
func init() {
	rootCmd.AddCommand(serveCmd)
}
