package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortitwin/interview-relay/internal/auth/jwt"
	"github.com/fortitwin/interview-relay/internal/common/cnst"
	"github.com/fortitwin/interview-relay/internal/common/config"
	"github.com/fortitwin/interview-relay/internal/engine"
	"github.com/fortitwin/interview-relay/internal/relay"
	"github.com/fortitwin/interview-relay/internal/session"
	"github.com/fortitwin/interview-relay/internal/transport/ws"
	"github.com/fortitwin/interview-relay/internal/tunnel"
	"github.com/fortitwin/interview-relay/pkg/logger"
	"github.com/fortitwin/interview-relay/pkg/metrics"
	"github.com/fortitwin/interview-relay/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the relay",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", cnst.AppName, version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.AppName,
		Short: "Interview relay",
		Long:  `Real-time relay between candidate browsers and the conversational AI engine`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", cnst.RelayYaml, "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting relay",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath),
		zap.Int("port", cfg.Port))

	auth, err := jwt.NewService(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Duration:  cfg.JWT.Duration,
	})
	if err != nil {
		log.Fatal("failed to initialize auth", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	registry := session.NewRegistry(log, cfg.Session.Shards)
	engineClient := engine.NewClient(log, cfg.Engine.BaseURL, cfg.Engine.Timeout)
	chat := relay.New(log, registry, engineClient, m)
	chatHandler := ws.NewHandler(log, auth, chat)
	voiceProxy := tunnel.NewProxy(log, auth, registry, m, cfg.Engine.WSBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go registry.RunSweeper(ctx, cfg.Session.IdleTTL, cfg.Session.SweepInterval)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	router.GET("/health_check", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})
	router.GET(cnst.ChatPath, chatHandler.HandleChat)
	router.GET(cnst.VoicePathPrefix+"/:sessionID", voiceProxy.Handle)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
