package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/register/app/services/register/handlers"
	"github.com/ardanlabs/register/business/core/student"
	"github.com/ardanlabs/register/business/core/student/stores/studentchain"
	"github.com/ardanlabs/register/foundation/events"
	"github.com/ardanlabs/register/foundation/logger"
	"github.com/ardanlabs/register/foundation/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// config is all the configuration for the application and the default
// values. Configuration values will be passed through the application as
// individual values.
type config struct {
	conf.Version
	Web struct {
		ReadTimeout     time.Duration `conf:"default:5s"`
		WriteTimeout    time.Duration `conf:"default:120s"`
		IdleTimeout     time.Duration `conf:"default:120s"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
		APIHost         string        `conf:"default:0.0.0.0:3000"`
		DebugHost       string        `conf:"default:0.0.0.0:4000"`
		CorsOrigins     []string      `conf:"default:*"`
	}
	Chain struct {
		URL      string `conf:"mask"`
		Contract string `conf:"default:0x0976E205B6D0F3E6DDA97bE011ce2D4457cdAc39"`
	}
	Wallet struct {
		PrivateKey       string `conf:"mask"`
		KeyFile          string
		KeystoreFile     string
		KeystorePassword string `conf:"mask"`
	}
	Log struct {
		File       string
		MaxSizeMB  int  `conf:"default:100"`
		MaxBackups int  `conf:"default:3"`
		MaxAgeDays int  `conf:"default:28"`
		Compress   bool `conf:"default:false"`
	}
}

func main() {

	// A missing .env file is fine, the environment may already be set.
	_ = godotenv.Load()

	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "student register",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "REGISTER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Println("parsing config:", err)
		os.Exit(1)
	}

	// Construct the application logger.
	log, err := logger.NewWithFile("REGISTER", logger.FileConfig{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log, cfg); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger, cfg config) error {

	// =========================================================================
	// Deployment Defaults

	// The hardhat deployment settings are honored when the service
	// specific values are not provided.
	if cfg.Chain.URL == "" {
		cfg.Chain.URL = os.Getenv("ALCHEMY_SEPOLIA_API_URL")
	}
	if cfg.Chain.URL == "" {
		cfg.Chain.URL = "http://127.0.0.1:8545"
	}
	if cfg.Wallet.PrivateKey == "" {
		cfg.Wallet.PrivateKey = os.Getenv("ACCOUNT_PRIVATE_KEY")
	}

	if !common.IsHexAddress(cfg.Chain.Contract) {
		return fmt.Errorf("invalid contract address %q", cfg.Chain.Contract)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Ledger Support

	log.Infow("startup", "status", "connecting to node")

	client, err := ethclient.Dial(cfg.Chain.URL)
	if err != nil {
		return fmt.Errorf("connecting to node: %w", err)
	}
	defer client.Close()

	// A missing or broken key is not fatal to the service. The view
	// reports it the same way a browser reports a missing wallet.
	privateKey, keyErr := signer.Load(signer.Config{
		PrivateKey:       cfg.Wallet.PrivateKey,
		KeyFile:          cfg.Wallet.KeyFile,
		KeystoreFile:     cfg.Wallet.KeystoreFile,
		KeystorePassword: cfg.Wallet.KeystorePassword,
	})
	if keyErr != nil {
		log.Infow("startup", "status", "wallet unavailable", "ERROR", keyErr)
	}

	connect := studentchain.Connector(log, client, privateKey, common.HexToAddress(cfg.Chain.Contract))
	if keyErr != nil {
		connect = func(ctx context.Context) (student.Ledger, error) {
			return nil, keyErr
		}
	}

	// The events package provides support for sending roster changes to
	// any client connected through the websocket endpoint.
	evts := events.New[student.Event]()

	core := student.NewCore(log, connect, evts)

	// Initialization happens in the background so the debug endpoints are
	// available while the node is being reached. Failures are part of the
	// view state.
	go func() {
		if err := core.Initialize(context.Background()); err != nil {
			log.Errorw("startup", "status", "register not connected", "ERROR", err)
		}
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, core)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Construct the mux for the API and view calls.
	apiMux, err := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:    shutdown,
		Log:         log,
		Core:        core,
		Evts:        evts,
		CorsOrigins: cfg.Web.CorsOrigins,
	})
	if err != nil {
		return fmt.Errorf("constructing api mux: %w", err)
	}

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any websocket connections.
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
