package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	bolt "go.etcd.io/bbolt"

	"foodcourt/config"
	"foodcourt/core"
	"foodcourt/core/events"
	"foodcourt/core/journal"
	"foodcourt/crypto"
	"foodcourt/observability/logging"
	"foodcourt/observability/metrics"
	fcotel "foodcourt/observability/otel"
	"foodcourt/rpc"
	"foodcourt/storage"
)

const (
	serviceName     = "foodcourtd"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser := logging.SetupWithOptions(serviceName, cfg.Env, logging.Options{
		Level:      cfg.Global.Logging.Level,
		File:       cfg.Global.Logging.File,
		MaxSizeMB:  cfg.Global.Logging.MaxSizeMB,
		MaxBackups: cfg.Global.Logging.MaxBackups,
		MaxAgeDays: cfg.Global.Logging.MaxAgeDays,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Global.Telemetry.Traces {
		shutdownTelemetry, err := fcotel.Init(ctx, fcotel.Config{
			ServiceName: serviceName,
			Environment: cfg.Env,
			Endpoint:    cfg.Global.Telemetry.Endpoint,
			Insecure:    cfg.Global.Telemetry.Insecure,
			Headers:     fcotel.ParseHeaders(cfg.Global.Telemetry.Headers),
			Traces:      true,
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Warn("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	genesis, err := genesisFromConfig(cfg)
	if err != nil {
		return err
	}
	checkOwnerKeystore(logger, cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eventJournal, err := journal.Open(filepath.Join(cfg.DataDir, "events.db"), &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open event journal: %w", err)
	}
	defer eventJournal.Close()

	broadcaster := events.NewBroadcaster(cfg.EventHistory)

	ledger, err := core.NewLedger(db, genesis, core.Options{
		Logger:      logger,
		Pauses:      cfg.Global.PauseSet(),
		Journal:     eventJournal,
		Broadcaster: broadcaster,
		Metrics:     metrics.Participants(),
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer ledger.Close()

	logger.Info("ledger ready",
		slog.Uint64("chainId", ledger.ChainID()),
		slog.Uint64("height", ledger.Height()),
		slog.String("root", ledger.Root().Hex()),
		slog.String("owner", crypto.FromBytes20(ledger.Owner()).String()),
		slog.String("profile", ledger.Profile().Name))

	server := rpc.NewServer(ledger, eventJournal, broadcaster, rpc.ServerConfig{
		RequestsPerSecond: cfg.Global.RateLimit.RequestsPerSecond,
		Burst:             cfg.Global.RateLimit.Burst,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		IdleTimeout:       cfg.IdleTimeout(),
	}, logger)

	listener, err := net.Listen("tcp", cfg.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.RPCAddress, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("rpc shutdown failed", slog.Any("error", err))
	}
	return <-serveErr
}

func genesisFromConfig(cfg *config.Config) (core.Genesis, error) {
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return core.Genesis{}, err
	}
	profile, err := cfg.ParticipantsProfile()
	if err != nil {
		return core.Genesis{}, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return core.Genesis{}, err
	}
	return core.Genesis{
		ChainID:        cfg.ChainID,
		Owner:          owner,
		Profile:        profile,
		Policy:         policy,
		MutationEvents: cfg.EmitMutationEvents,
		Quota:          cfg.Global.QuotaLimits(),
	}, nil
}

// checkOwnerKeystore warns when the configured keystore belongs to a different
// address than Owner. The node itself never signs.
func checkOwnerKeystore(logger *slog.Logger, cfg *config.Config) {
	path := strings.TrimSpace(cfg.OwnerKeystorePath)
	if path == "" {
		return
	}
	addr, err := crypto.KeystoreAddress(path)
	if err != nil {
		logger.Warn("owner keystore unreadable", logging.MaskField("keystorePath", path), slog.Any("error", err))
		return
	}
	owner, err := cfg.OwnerAddress()
	if err == nil && addr.Bytes20() != owner {
		logger.Warn("owner keystore does not match configured owner",
			slog.String("keystore", addr.String()),
			slog.String("owner", cfg.Owner))
	}
}
