package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	otpapp "github.com/go-otp-api/internal/application/otp"
	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-otp-api/internal/infrastructure/jwt"
	"github.com/go-otp-api/internal/infrastructure/notify"
	"github.com/go-otp-api/internal/infrastructure/smtp"
	"github.com/go-otp-api/internal/infrastructure/sns"
	transporthttp "github.com/go-otp-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available, no bearer tokens will be issued: %v", err)
	}

	// Delivery channel: SMTP email by default, AWS SNS SMS when configured.
	var notifier notify.Notifier
	switch cfg.OTPChannel {
	case "sms":
		sender, err := sns.NewSender(cfg)
		if err != nil {
			log.Fatalf("SNS sender not available: %v", err)
		}
		notifier = notify.NewSMSNotifier(sender, cfg.NotifyTimeout)
	default:
		notifier = notify.NewEmailNotifier(smtp.NewMailer(cfg), cfg.NotifyTimeout)
	}

	otpRepo := dynamo.NewOtpRepo(dynamoClient, cfg.DynamoTables.Otps)
	deps := &transporthttp.Deps{
		AccountRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		OtpRepo:     otpRepo,
		Notifier:    notifier,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Background expiry sweep. Verification stays correct without it; this
	// just keeps dead records out of the table.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go otpapp.NewSweeper(otpapp.NewService(otpRepo), cfg.SweepInterval).Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
