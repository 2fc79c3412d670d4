package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/arkbridge/adapter-whatsapp-web/internal/adapter"
	"github.com/arkbridge/adapter-whatsapp-web/internal/sink"
	"github.com/arkbridge/adapter-whatsapp-web/internal/status"
	"github.com/arkbridge/adapter-whatsapp-web/internal/statusserver"
	"github.com/arkbridge/adapter-whatsapp-web/internal/universal"
	"github.com/arkbridge/adapter-whatsapp-web/internal/waclient"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/env"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

func main() {
	log.SetDebug(env.GetEnvBoolOrDefault("LOG_DEBUG", false))
	logger := log.Print("main")

	ctx := context.Background()

	// Initialize Datastore
	container, err := waclient.NewDatastore(ctx)
	if err != nil {
		logger.Fatal(err.Error())
	}

	// Initialize WhatsApp Client
	client, err := waclient.New(ctx, container, waclient.ConfigFromEnv())
	if err != nil {
		logger.Fatal(err.Error())
	}

	// Initialize Status Hub + Controller
	hub := status.NewHub()
	hub.Subscribe(func(u status.Update) {
		entry := logger.WithField("status", string(u.Status))
		if u.Message != "" {
			entry = entry.WithField("message", u.Message)
		}
		entry.Info("Connection status changed")
	})
	controller := adapter.NewController(client, hub, adapter.Config{
		SelfIDOverride: env.GetEnvStringOrDefault("WHATSAPP_SELF_ID", ""),
	})

	// Dispatched sessions go to the log and, when configured, to the
	// external session sink endpoints
	sessionSink := sink.NewEngine(sink.EndpointsFromEnv())
	controller.OnSession(logSession)
	controller.OnSession(sessionSink.Dispatch)
	controller.OnSend(logSession)
	controller.OnSend(sessionSink.Dispatch)

	// Initialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Connection health probe; a dead client while the hub still reports
	// success is downgraded to offline so observers can react
	if env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_HEALTH_CHECK_CRON", true) {
		_, err = c.AddFunc("0 * * * * *", func() {
			current := hub.Current()
			if current.Status == status.PhaseSuccess && !client.IsHealthy() {
				hub.Publish(status.Update{
					Status:  status.PhaseOffline,
					Message: "WhatsApp client failed its health probe",
				})
			}
		})
		if err != nil {
			logger.Fatal(err.Error())
		}
		c.Start()
	}

	// Start Status Server
	server := statusserver.New(hub)
	serverAddress := env.GetEnvStringOrDefault("STATUS_SERVER_ADDRESS", "0.0.0.0")
	serverPort := env.GetEnvStringOrDefault("STATUS_SERVER_PORT", "7001")
	go func() {
		if err := server.Listen(serverAddress + ":" + serverPort); err != nil {
			logger.Fatal(err.Error())
		}
	}()

	// Connect WhatsApp Client
	if err := controller.Connect(ctx); err != nil {
		logger.Fatal(err.Error())
	}

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := controller.Disconnect(ctxShutdown); err != nil {
		logger.Error(err.Error())
	}
	if err := server.Shutdown(); err != nil {
		logger.Error(err.Error())
	}
	sessionSink.Shutdown()
	c.Stop()
}

func logSession(session *universal.Session) {
	encoded, err := json.Marshal(session)
	if err != nil {
		log.Print("main").WithError(err).Error("Failed to encode session")
		return
	}
	log.Print("main").WithField("type", session.Type).Debug(string(encoded))
}
