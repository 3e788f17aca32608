package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bidding-app/internal/client"
	"bidding-app/internal/config"
	"bidding-app/internal/infrastructure/rest"
	"bidding-app/internal/infrastructure/signalr"
	"bidding-app/internal/ui"
	"bidding-app/pkg/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// The terminal owns stdout, so the client always logs to a file.
const defaultLogFile = "bid-client.log"

var (
	configPath string
	apiURL     string
	hubURL     string
	insecure   bool
)

var rootCmd = &cobra.Command{
	Use:   "bid-client",
	Short: "Terminal client for browsing products and placing bids",
	Long: `bid-client lists the products on offer, lets you place bids on them and
shows bid notifications pushed by the hub as they happen.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file")
	rootCmd.Flags().StringVar(&apiURL, "api", "", "product offer API base URL")
	rootCmd.Flags().StringVar(&hubURL, "hub", "", "notification hub URL")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if hubURL != "" {
		cfg.Hub.URL = hubURL
	}
	if insecure {
		cfg.HTTP.InsecureSkipVerify = true
	}
	return cfg, nil
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = defaultLogFile
	}
	log, err := logger.NewWithConfig(logger.Options{Level: cfg.Log.Level, OutputPaths: []string{logFile}})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if zl, ok := log.(*logger.ZapLogger); ok {
		defer zl.Sync()
	}

	log.Info("Starting bid client", "config", cfg.GetConfigString())

	api := rest.NewProductOfferClient(cfg.API.BaseURL, rest.Options{
		Timeout:            cfg.HTTP.Timeout,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
	})
	bidder := client.NewBidder(api, log)

	var tlsConfig *tls.Config
	if cfg.HTTP.InsecureSkipVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}
	hub := signalr.NewHubConnection(cfg.Hub.URL, signalr.Options{
		ReconnectDelays:   cfg.Hub.ReconnectDelays,
		KeepAliveInterval: cfg.Hub.KeepAlive,
		ServerTimeout:     cfg.Hub.ServerTimeout,
		TLSConfig:         tlsConfig,
	}, log)

	listener := client.NewNotificationListener(64, log)
	listener.Bind(hub, cfg.Hub.Event)
	defer listener.Close()
	defer func() {
		if err := hub.Stop(); err != nil {
			log.Error("Failed to stop hub connection", "error", err)
		}
	}()

	model := ui.New(ctx, ui.Deps{
		Bidder:   bidder,
		Hub:      hub,
		Listener: listener,
		Log:      log,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	hub.OnReconnecting(func(err error) {
		log.Warn("Hub connection lost, reconnecting", "error", err)
		program.Send(ui.HubStatusMsg{Status: signalr.StateReconnecting.String()})
	})
	hub.OnReconnected(func() {
		log.Info("Hub connection restored")
		program.Send(ui.HubStatusMsg{Status: signalr.StateConnected.String()})
	})
	hub.OnClose(func(err error) {
		if err != nil {
			log.Error("Hub connection closed", "error", err)
		}
		program.Send(ui.HubStatusMsg{Status: signalr.StateDisconnected.String()})
	})

	refresher := client.NewCatalogRefresher(cfg.Catalog.RefreshInterval, func() {
		program.Send(ui.RefreshCatalogMsg{})
	}, log)
	if err := refresher.Start(); err != nil {
		return err
	}
	defer refresher.Stop()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run ui: %w", err)
	}

	log.Info("Bid client stopped")
	return nil
}
