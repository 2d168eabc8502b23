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

	"github.com/spf13/cobra"

	"algoflow/internal/api"
	"algoflow/internal/auth"
	"algoflow/internal/db"
	"algoflow/internal/index"
)

// ----- serve -----

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (default: :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		config.Listen = listenAddr
	}
	log := newLogger(config)

	log.Info("algoflow starting",
		"listen", config.Listen,
		"version", config.Version,
		"debug", config.Debug,
		"cors_origins", config.CORSOrigins,
	)

	database, err := db.Open(config.DBURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	log.Info("database opened", "driver", database.Driver().String())

	tokens := auth.NewTokenService(config.JWTSigningKey, config.JWTIssuer, config.AccessTokenTTL)
	handler := api.NewHandler(database, config, tokens, log)
	router := api.NewRouter(handler)

	srv := &http.Server{
		Addr:         config.Listen,
		Handler:      api.WithDefaults(router, log, config.Debug, config.CORSOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down")

		// Give connections 30s to finish
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}

		close(done)
	}()

	log.Info("algoflow listening", "addr", config.Listen)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	log.Info("algoflow stopped")
	return nil
}

// ----- reindex -----

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild every node index from the stored graphs",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(config)

		database, err := db.Open(config.DBURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		results, err := index.New(log).ReconcileAll(cmd.Context(), database)
		if err != nil {
			return err
		}

		var nodes, failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "algorithm %d: %v\n", r.AlgorithmID, r.Err)
				continue
			}
			nodes += r.Nodes
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d algorithms (%d nodes), %d skipped\n",
			len(results)-failed, nodes, failed)
		return nil
	},
}

// ----- token -----

var tokenUserID int64

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID <= 0 {
			return errors.New("--user must be a positive user id")
		}
		config, err := loadConfig()
		if err != nil {
			return err
		}

		tokens := auth.NewTokenService(config.JWTSigningKey, config.JWTIssuer, config.AccessTokenTTL)
		tok, err := tokens.GenerateAccessToken(tokenUserID)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "User id the token is issued to")
}
