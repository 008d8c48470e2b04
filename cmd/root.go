// Package cmd implements the coordcore command line interface.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/afetops/coordcore/app"
	"github.com/afetops/coordcore/config"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "coordcore",
	Short: "Emergency response coordination service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// dispatcherActor is the identity recorded on automatic assignments made by
// the service itself.
func dispatcherActor() model.Actor {
	return model.Actor{ID: uuid.New(), Name: "auto-dispatcher", Role: model.RoleCoordinator}
}

// headerAuth trusts the identity headers set by the fronting gateway. The
// websocket endpoint is never exposed without one.
func headerAuth(r *http.Request) (model.Actor, error) {
	role := model.Role(r.Header.Get("X-User-Role"))
	if role == "" {
		return model.Actor{}, fmt.Errorf("missing identity headers")
	}
	id, _ := uuid.Parse(r.Header.Get("X-User-ID"))
	return model.Actor{
		ID:    id,
		Name:  r.Header.Get("X-User-Name"),
		Role:  role,
		Phone: r.Header.Get("X-User-Phone"),
		Email: r.Header.Get("X-User-Email"),
	}, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg, headerAuth, dispatcherActor())
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
