package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/verdantchat/verdant/internal/api"
	"github.com/verdantchat/verdant/internal/auth"
	"github.com/verdantchat/verdant/internal/engine"
	"github.com/verdantchat/verdant/internal/model"
	"github.com/verdantchat/verdant/internal/transport"
)

type config struct {
	APIURL    string `validate:"required,url"`
	SocketURL string `validate:"required,url"`

	// Either a ready token or email/password credentials.
	Token    string
	Email    string `validate:"required_without=Token,omitempty,email"`
	Password string `validate:"required_without=Token"`
}

func loadConfig() (config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := config{
		APIURL:    os.Getenv("VERDANT_API_URL"),
		SocketURL: os.Getenv("VERDANT_SOCKET_URL"),
		Token:     os.Getenv("VERDANT_TOKEN"),
		Email:     os.Getenv("VERDANT_EMAIL"),
		Password:  os.Getenv("VERDANT_PASSWORD"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.New(cfg.APIURL, cfg.Token, log)

	token := cfg.Token
	var profile model.User
	if token == "" {
		token, profile, err = client.Login(ctx, cfg.Email, cfg.Password)
		if err != nil {
			return fmt.Errorf("logging in: %w", err)
		}
		log.Info("logged in", "user", profile.Username)
	} else {
		profile, err = client.Me(ctx)
		if err != nil {
			return fmt.Errorf("fetching profile: %w", err)
		}
	}

	identity, err := auth.Inspect(token)
	if err != nil {
		return fmt.Errorf("inspecting token: %w", err)
	}
	if identity.Expired(time.Now()) {
		return fmt.Errorf("token expired at %s", identity.ExpiresAt)
	}

	socket := transport.NewSocket(cfg.SocketURL, token, log)
	lifecycle := transport.NewLifecycle(socket, profile.ID, log)

	eng := engine.New(engine.Config{
		Self:   profile,
		API:    client,
		Live:   lifecycle,
		Logger: log,
		Notify: func() { log.Debug("state updated") },
	})
	eng.Bind()
	lifecycle.OnReady(eng.SetReady)
	lifecycle.OnForceLogout(func() {
		log.Warn("session terminated by server")
		eng.Reset()
		stop()
	})

	if err := lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("starting live channel: %w", err)
	}
	defer lifecycle.Stop()

	eng.LoadDirectory()
	eng.LoadUsers(1)

	log.Info("synchronizing", "user", profile.Username)
	return eng.Run(ctx)
}
