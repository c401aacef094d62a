package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ProjectAssistant/database/postgres"
	"ProjectAssistant/internal/bridge"
	"ProjectAssistant/internal/config"
	"ProjectAssistant/pkg/log"
	"ProjectAssistant/pkg/whatsapp"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn(log.Fields{"error": err.Error()}, "Error loading .env file")
	}
	logger := log.NewLogger("relay")

	validator := config.NewValidator()
	relayConfig, err := config.LoadRelayConfig(validator)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := whatsapp.New(ctx, logger, postgres.ConfigFromEnv())
	if err != nil {
		logger.Fatalf("Failed to create WhatsApp client: %v", err)
	}

	hub := bridge.New(logger, validator, client, bridge.Config{
		AllowedIP:      relayConfig.AllowedIP,
		TargetJID:      relayConfig.TargetJID,
		StatusInterval: relayConfig.StatusInterval,
	})
	client.OnState(hub.HandleState)
	client.OnMessage(hub.HandleInbound)

	fiberApp := config.NewFiber(logger, "Project Assistant Relay")
	hub.Start(fiberApp)

	go hub.RunStatusLoop(ctx)

	go func() {
		if err := fiberApp.Listen(fmt.Sprintf(":%s", relayConfig.Port)); err != nil {
			logger.Fatalf("Error starting relay: %v", err)
		}
	}()

	if err := client.Connect(ctx); err != nil {
		logger.Fatalf("Failed to connect to WhatsApp: %v", err)
	}

	target := relayConfig.TargetJID
	if target == "" {
		target = "(all)"
	}
	logger.WithFields(logrus.Fields{
		"port":       relayConfig.Port,
		"allowed_ip": relayConfig.AllowedIP,
		"target_jid": target,
	}).Info("Relay fully initialized")

	<-ctx.Done()
	logger.Info("Shutting down relay...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("HTTP shutdown did not complete")
	}
	client.Disconnect()
}
