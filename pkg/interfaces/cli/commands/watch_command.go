package commands

import (
	"context"
	"fmt"
	"os"

	cloudfirestore "cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"

	"github.com/smehta/procure/pkg/application/services/reconcile"
	"github.com/smehta/procure/pkg/infrastructure/repositories/firestore"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	Project string
	Scope   string
	Verbose bool
}

// WatchCommand follows a live Firestore scope: every change to the input
// collections triggers a rederivation, backfill writes, and republication of
// the open/closed item lists. It runs until the context is cancelled.
type WatchCommand struct {
	config WatchConfig
}

// NewWatchCommand creates a new watch command with the given configuration
func NewWatchCommand(config WatchConfig) *WatchCommand {
	return &WatchCommand{
		config: config,
	}
}

// Execute runs the watch command until ctx is done
func (c *WatchCommand) Execute(ctx context.Context) error {
	project := c.config.Project
	if project == "" {
		project = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if project == "" {
		return fmt.Errorf("must specify -project or set GOOGLE_CLOUD_PROJECT")
	}
	if c.config.Scope == "" {
		return fmt.Errorf("scope must not be empty")
	}

	client, err := cloudfirestore.NewClient(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to connect to Firestore: %w", err)
	}
	defer client.Close()

	logger := logrus.New()
	if c.config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.WithFields(logrus.Fields{
		"project": project,
		"scope":   c.config.Scope,
	}).Info("Watching Firestore scope")

	store := firestore.NewDocumentStore(client)
	svc := reconcile.NewService(store, c.config.Scope, logger)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("error starting derivation: %w", err)
	}
	defer svc.Close()

	<-ctx.Done()
	logger.Info("Watch stopped")
	return nil
}
