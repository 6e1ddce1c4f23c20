package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/kadrohq/kadro-go/bridge"
	"github.com/kadrohq/kadro-go/credentials"
	"github.com/kadrohq/kadro-go/hr"
	"github.com/kadrohq/kadro-go/internal/config"
	"github.com/kadrohq/kadro-go/session"
	"github.com/kadrohq/kadro-go/transport"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "login password")
	flag.Parse()

	_ = godotenv.Load()
	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if c.GetEnv() != "DEV" {
		logger = logger.Level(zerolog.InfoLevel)
	}

	storage, err := credentials.NewFileStorage(c.GetDataFolder())
	if err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}
	store, err := credentials.NewStore(storage, credentials.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating credential store: %w", err)
	}

	// One client for both the session machine and the resource services:
	// they must share the cookie jar carrying the refresh credential.
	client, err := transport.New(
		c.GetBaseURL(),
		store,
		transport.WithTimeout(c.GetRequestTimeout()),
		transport.WithClientLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}

	manager, err := session.NewManager(client, storage, session.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}
	client.SetSessionExpiredHandler(func(cause error) {
		logger.Warn().Msg("session expired, please log in again")
		manager.Expire(cause)
	})

	unbind := bridge.Bind(manager, store, logger)
	defer unbind()

	api := hr.NewClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := manager.EnsureInitialized(ctx); err != nil {
		logger.Debug().Err(err).Msg("no live session, logging in")
	}
	if !manager.Snapshot().IsAuthenticated {
		if *email == "" || *password == "" {
			return errors.New("not logged in: pass -email and -password")
		}
		if err := manager.Login(ctx, *email, *password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}
	if u := manager.CurrentUser(); u != nil {
		logger.Info().Str("email", u.Email).Str("role", u.Role).Msg("logged in")
	}

	employees, err := api.Employees.List(ctx)
	if err != nil {
		return fmt.Errorf("listing employees: %w", err)
	}
	for _, e := range employees {
		fmt.Printf("%-20s %-20s %s\n", e.FirstName, e.LastName, e.Email)
	}

	return manager.Logout(ctx)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
