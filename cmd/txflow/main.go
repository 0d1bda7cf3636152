// Package main is the entry point for the txflow transaction workflows.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ncoria/txflow/business/chain"
	chainapp "github.com/ncoria/txflow/business/chain/app"
	chainDI "github.com/ncoria/txflow/business/chain/di"
	chaindomain "github.com/ncoria/txflow/business/chain/domain"
	"github.com/ncoria/txflow/business/venue"
	"github.com/ncoria/txflow/business/workflow"
	workflowApp "github.com/ncoria/txflow/business/workflow/app"
	workflowDI "github.com/ncoria/txflow/business/workflow/di"
	"github.com/ncoria/txflow/internal/apm"
	"github.com/ncoria/txflow/internal/config"
	"github.com/ncoria/txflow/internal/health"
	"github.com/ncoria/txflow/internal/logger"
	"github.com/ncoria/txflow/internal/metrics"
	"github.com/ncoria/txflow/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	configPath string
	retries    int
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "txflow",
		Short:         "Transaction workflow simulations for send and swap",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	root.PersistentFlags().IntVar(&retries, "retries", 5, "retries for node connection and transaction submission")

	root.AddCommand(newTransferCmd(), newArbitrageCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <amount> <blocks>",
		Short: "Watch for blocks and send a native transfer every <blocks> heights",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			blocks, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid blocks %q: %w", args[1], err)
			}

			return runTransfer(cmd.Context(), amount, blocks)
		},
	}
}

func newArbitrageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "arbitrage <amount>",
		Short: "Run a two-leg approve-and-swap arbitrage across both venues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, ok := new(big.Int).SetString(args[0], 10)
			if !ok {
				return fmt.Errorf("invalid amount %q", args[0])
			}

			return runArbitrage(cmd.Context(), amount)
		},
	}
}

// bootstrap loads configuration and wires the application container. The
// returned teardown releases observability resources.
func bootstrap(ctx context.Context) (*monolith.App, *logger.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Node.ConnectRetries = retries

	log := logger.NewStderr(logger.Level(cfg.App.LogLevel), cfg.App.Name)
	log.Info(ctx, "starting txflow", "version", version, "environment", cfg.App.Environment)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin")

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		); err != nil {
			log.Warn(ctx, "failed to initialize metrics", "error", err)
		} else {
			go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
			log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)
		}
	}

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create monolith: %w", err)
	}

	modules := []monolith.Module{
		&chain.Module{},
		&venue.Module{},
		&workflow.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to start modules: %w", err)
	}

	teardown := func() {
		healthServer.Stop(ctx)
		if traceProvider != nil {
			traceProvider.Stop()
		}
		log.Sync()
	}

	return mono, log, teardown, nil
}

// connect dials a client's endpoint. Connection retry exhaustion is fatal.
func connect(ctx context.Context, client chainapp.ChainClient) error {
	connector, ok := client.(interface{ Connect(context.Context) error })
	if !ok {
		return nil
	}
	return connector.Connect(ctx)
}

func runTransfer(ctx context.Context, amount decimal.Decimal, blocks int) error {
	mono, log, teardown, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	to, err := chaindomain.ValidateAddress(mono.Config().Transfer.ToAddress)
	if err != nil {
		return fmt.Errorf("invalid destination address: %w", err)
	}

	client := chainDI.GetTransferClient(mono.Services())
	defer client.Close()

	log.Info(ctx, "connecting to node", "endpoint", mono.Config().Transfer.Endpoint)
	if err := connect(ctx, client); err != nil {
		return err
	}

	watcher, err := workflowDI.GetWatcherFactory(mono.Services())(workflowApp.WatcherParams{
		Amount:  amount,
		Blocks:  blocks,
		Retries: retries,
		To:      to,
	})
	if err != nil {
		return err
	}

	return watcher.Run(ctx)
}

func runArbitrage(ctx context.Context, amount *big.Int) error {
	mono, log, teardown, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer teardown()

	clientA := chainDI.GetVenueAClient(mono.Services())
	clientB := chainDI.GetVenueBClient(mono.Services())
	defer clientA.Close()
	defer clientB.Close()

	log.Info(ctx, "connecting to venue nodes",
		"venue_a", mono.Config().Arbitrage.VenueA.Endpoint,
		"venue_b", mono.Config().Arbitrage.VenueB.Endpoint,
	)
	if err := connect(ctx, clientA); err != nil {
		return err
	}
	if err := connect(ctx, clientB); err != nil {
		return err
	}

	orchestrator, err := workflowDI.GetOrchestratorFactory(mono.Services())(workflowApp.ArbitrageParams{
		Amount:  amount,
		Retries: retries,
	})
	if err != nil {
		return err
	}

	reports := orchestrator.Execute(ctx)
	for _, report := range reports {
		if report.Err != nil {
			log.Error(ctx, "leg aborted", "leg", report.Leg, "stage", string(report.Stage), "error", report.Err)
			continue
		}
		log.Info(ctx, "leg finished",
			"leg", report.Leg, "stage", string(report.Stage), "outcome", report.Outcome.String())
	}

	return nil
}
