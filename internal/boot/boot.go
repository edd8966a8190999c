package boot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgmonteleone/AtlasFleetReport/internal/config"
	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane/atlas"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/utils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/docstore"
)

const defaultConfigPath = "config/config.yaml"

// fleetAPI is everything the commands need from the control plane.
type fleetAPI interface {
	controlplane.ControlPlane
	controlplane.Inventory
}

// app carries the loaded config and the factories commands build their collaborators with.
type app struct {
	cfgPath string
	cfg     *config.Config

	newAPI    func(cfg *config.Config) (fleetAPI, error)
	openSinks func(ctx context.Context, cfg *config.Config, scope string, runTime time.Time) (sink.Sink, error)
	openStore func(ctx context.Context, cfg *config.Config, collection string) (docstore.Finder, func(context.Context) error, error)
	curTime   utils.Provider[time.Time]
}

func newApp() *app {
	return &app{
		newAPI:    newAtlasAPI,
		openSinks: openSinks,
		openStore: openStore,
		curTime:   func(context.Context) time.Time { return time.Now() },
	}
}

// Run .
func Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(newApp()).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetreport",
		Short:         "Collects a per-cluster report of an Atlas fleet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultConfigPath, "Path to YAML config file")

	root.AddCommand(
		newReportCmd(a),
		newProjectsSinceCmd(a),
		newDeletedClustersCmd(a),
		newExportParquetCmd(a),
	)

	return root
}

// loadConfig reads the config file. A missing default file is not an error: env and flags may
// carry everything.
func (a *app) loadConfig(cmd *cobra.Command) error {
	path := a.cfgPath

	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			log.Printf("[INFO] config file %s not found, using defaults and environment", path)
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	a.cfg = cfg

	return nil
}

func newAtlasAPI(cfg *config.Config) (fleetAPI, error) {
	c, err := atlas.New(cfg.Atlas.PublicKey, cfg.Atlas.PrivateKey,
		atlas.WithTimeout(cfg.Atlas.Timeout.Duration),
		atlas.WithBaseURL(cfg.Atlas.BaseURL),
		atlas.WithPageSize(cfg.Atlas.PageSize),
	)
	if err != nil {
		return nil, fmt.Errorf("atlas.New: %w", err)
	}

	return c, nil
}
