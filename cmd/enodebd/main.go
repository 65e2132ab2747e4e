package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/magma/magma-sub003/internal/acs"
	"github.com/magma/magma-sub003/internal/acsserver"
	"github.com/magma/magma-sub003/internal/api"
	"github.com/magma/magma-sub003/internal/config"
	"github.com/magma/magma-sub003/internal/devicecfg"
	"github.com/magma/magma-sub003/internal/devices"
	"github.com/magma/magma-sub003/internal/integration"
	"github.com/magma/magma-sub003/internal/models"
	"github.com/magma/magma-sub003/internal/policy"
	"github.com/magma/magma-sub003/internal/server"
	"github.com/magma/magma-sub003/internal/status"
	"github.com/magma/magma-sub003/internal/storage"
	"github.com/magma/magma-sub003/pkg/crypto"
	"github.com/magma/magma-sub003/pkg/tr069"
)

func main() {
	var configPath = flag.String("config", "config/enodebd.yml", "service configuration file")
	var managedPath = flag.String("managed", "config/managed.yml", "managed eNodeB configuration file")
	var validateOnly = flag.Bool("validate", false, "validate configuration files and exit")
	var showConfig = flag.Bool("show-config", false, "print configuration summary and exit")
	var hashPassword = flag.String("hash-password", "", "print the bcrypt hash of a password for the operators list and exit")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *hashPassword != "" {
		hash, err := crypto.HashPassword(*hashPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to hash password")
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("configPath", *configPath).Msg("Failed to load configuration")
	}
	setupLogging(cfg.Log)

	if *showConfig {
		cfg.PrintConfigSummary()
		return
	}

	managed, err := config.LoadManaged(*managedPath)
	if err != nil {
		log.Fatal().Err(err).Str("managedPath", *managedPath).Msg("Failed to load managed configuration")
	}

	if *validateOnly {
		cfg.PrintConfigSummary()
		if err := validateManaged(managed); err != nil {
			log.Fatal().Err(err).Msg("Managed configuration invalid")
		}
		fmt.Println("configuration valid")
		return
	}

	log.Info().
		Str("configPath", *configPath).
		Str("managedPath", *managedPath).
		Msg("enodebd starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	nc := connectNATS(cfg)
	if nc != nil {
		defer nc.Close()
	}

	// FreedomFi grants need the policy service
	var grants devices.GrantRequester
	if cfg.Policy.Enabled {
		if nc == nil {
			log.Warn().Msg("Policy service enabled without NATS, FreedomFi radios keep the managed channel")
		} else {
			grants = policy.NewClient(nc, cfg.Policy.Subject, cfg.Policy.Timeout)
		}
	}
	registry := devices.NewRegistry(grants)
	manager := acs.NewManager(registry.Identify, managed)

	var publisher *server.Publisher
	if nc != nil {
		publisher = server.NewPublisher(nc, cfg.NATS.SubjectPrefix)
	}
	recorder := server.NewRecorder(store, publisher)
	recorder.Attach(manager)

	var wg sync.WaitGroup

	var attached status.AttachSource
	if nc != nil {
		mme := server.NewMMESubscriber(nc, cfg.NATS.SubjectPrefix, recorder)
		attached = mme
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mme.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("MME attach subscriber stopped")
			}
		}()
	}
	aggregator := status.NewAggregator(manager, status.NewGPSCache(cfg.Status.GPSCacheFile), attached)
	manager.OnSessionEnd(aggregator.Observe)

	forwarders := integration.NewForwarderService(cfg.Integration)
	defer forwarders.Close()

	reporter := server.NewReporter(manager, aggregator, store, recorder, server.ReporterOptions{
		Interval:          cfg.Status.ReportInterval,
		DisconnectTimeout: cfg.Status.DisconnectTimeout,
		Publisher:         publisher,
		Forwarders:        forwarders,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Status reporter stopped")
		}
	}()

	acsServer := acsserver.NewServer(manager, tr069.NewJSONCodec(), cfg.TR069.Path)
	apiServer := api.NewRESTServer(cfg, api.Deps{
		Store:       store,
		Manager:     manager,
		Aggregator:  aggregator,
		Recorder:    recorder,
		ManagedPath: *managedPath,
	})

	serve := func(name string, listen func(string) error, addr string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("server", name).Msg("Server failed")
				cancel()
			}
		}()
	}
	serve("tr069", acsServer.ListenAndServe, fmt.Sprintf("%s:%d", cfg.TR069.Host, cfg.TR069.Port))
	serve("api", apiServer.ListenAndServe, fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for running := true; running; {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				reloadManaged(manager, recorder, *managedPath)
				continue
			}
			log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
			running = false
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, shutting down")
			running = false
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := acsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown TR-069 server gracefully")
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()
	registry.FreedomFi().Wait()

	log.Info().Msg("enodebd stopped")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Level).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// validateManaged checks the shared values and every override
func validateManaged(mc *config.ManagedConfig) error {
	if err := devicecfg.Validate("", *mc); err != nil {
		return err
	}
	for _, serial := range mc.OverriddenSerials() {
		if err := devicecfg.Validate(serial, mc.ForSerial(serial)); err != nil {
			return err
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	if cfg.DSN == "" {
		log.Warn().Msg("No database configured, keeping history in memory")
		return storage.NewMemoryStore(), nil
	}

	pg, err := storage.NewPostgresStore(cfg.DSN, storage.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

// connectNATS returns nil when NATS is not configured or unreachable
func connectNATS(cfg *config.Config) *nats.Conn {
	if cfg.NATS.URL == "" {
		log.Info().Msg("NATS not configured, running in standalone mode")
		return nil
	}

	log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.NATS.ClientID),
		nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
		nats.ReconnectWait(cfg.NATS.ReconnectInterval),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
		return nil
	}

	log.Info().Msg("Connected to NATS")
	return nc
}

func reloadManaged(mg *acs.Manager, recorder *server.Recorder, path string) {
	mc, err := config.LoadManaged(path)
	if err != nil {
		log.Error().Err(err).Str("managedPath", path).Msg("Managed configuration reload failed")
		return
	}
	mg.ReloadManaged(mc)
	recorder.Record(context.Background(), &models.EventLog{
		Type:        models.EventTypeConfigReload,
		Level:       models.EventLevelInfo,
		Description: "Managed configuration reloaded on SIGHUP",
		Details:     models.Variables{"path": path},
	})
	log.Info().Str("managedPath", path).Msg("Managed configuration reloaded")
}
