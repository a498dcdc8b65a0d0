package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/handler"
	m "github.com/Fintoc-PepeStore2-0/Backend/internal/api/middleware"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/router"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/appcontext"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/config"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/logger"
)

func main() {
	cf := config.GetConfig()

	var extra []io.Writer
	var kafkaLog *logger.KafkaWriter
	if cf.LogKafkaTopic != "" && len(cf.Brokers()) > 0 {
		w, err := logger.NewKafkaWriter(cf.Brokers(), cf.LogKafkaTopic)
		if err != nil {
			fmt.Fprintf(os.Stderr, "kafka log writer: %v\n", err)
			os.Exit(1)
		}
		kafkaLog = w
		extra = append(extra, w)
	}
	log := logger.New(logger.Options{
		Level:       cf.LogLevel,
		Development: cf.IsDevelopment(),
		Service:     "storefront",
		Extra:       extra,
	})

	if err := cf.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	app, err := appcontext.NewApplicationContext(cf, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init application")
	}

	// 初始化 handler
	server := api.NewServer(
		handler.NewCartHandler(app.CartService),
		handler.NewProductHandler(app.ReservationService),
		handler.NewPurchaseHandler(app.OrderService),
	)

	// 設置路由
	r := router.SetupRouter(server, router.Options{
		Verifier:        m.NewTokenVerifier(cf.JwtSecret),
		CheckoutLimiter: app.CheckoutLimiter,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cf.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdownCompleted := make(chan struct{}, 1)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("application shutdown")
		}
		if kafkaLog != nil {
			_ = kafkaLog.Close()
		}
		shutdownCompleted <- struct{}{}
	}()

	log.Info().Str("addr", srv.Addr).Str("provider", app.Gateway.Name()).Msg("Server starting")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("listen")
	}
	<-shutdownCompleted
	log.Info().Msg("closed completed")
}
