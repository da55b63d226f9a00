// Command canopy grows forests of competing trees over a procedural terrain
// and keeps a record of finished runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dm-vev/canopy/sim/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "canopy",
		Short:        "Grow forests of trees competing for light and space",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newRunsCmd(), newShowCmd(), newRemoveCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		seed       string
		steps      int
		dbDir      string
		noSave     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grow a forest and print a summary of every tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc, err := readConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				uc.Simulation.Seed = seed
			}
			if steps > 0 {
				uc.Simulation.MaxSteps = steps
			}
			if dbDir != "" {
				uc.Store.Folder = dbDir
			}
			if noSave {
				uc.Store.Save = false
			}

			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: uc.LogLevel()}))
			conf, err := uc.Config(log)
			if err != nil {
				return err
			}
			s, err := conf.New()
			if err != nil {
				return err
			}
			res, runErr := s.Run(cmd.Context())
			if err := writeReport(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if runErr != nil {
				log.Warn("run interrupted, result not saved", "run", res.ID, "error", runErr)
				return nil
			}
			if !uc.Store.Save {
				return nil
			}
			db, err := store.Config{Log: log}.Open(uc.Store.Folder)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Save(res); err != nil {
				return err
			}
			log.Info("run saved", "run", res.ID, "folder", uc.Store.Folder)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "path of the TOML configuration, created with defaults if missing")
	cmd.Flags().StringVar(&seed, "seed", "", "seed overriding the configured one")
	cmd.Flags().IntVar(&steps, "steps", 0, "maximum number of steps, overriding the configured limit")
	cmd.Flags().StringVar(&dbDir, "db", "", "run database folder, overriding the configured one")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the finished run")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var dbDir string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(dbDir, func(db *store.DB) error {
				runs, err := db.List()
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "no runs stored")
					return err
				}
				return writeRunList(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().StringVar(&dbDir, "db", "runs", "run database folder")
	return cmd
}

func newShowCmd() *cobra.Command {
	var dbDir string
	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Print the summary of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parse run id: %w", err)
			}
			return withDB(dbDir, func(db *store.DB) error {
				res, err := db.Load(id)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&dbDir, "db", "runs", "run database folder")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	var dbDir string
	cmd := &cobra.Command{
		Use:   "rm <run>...",
		Short: "Remove stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(dbDir, func(db *store.DB) error {
				for _, arg := range args {
					id, err := uuid.Parse(arg)
					if err != nil {
						return fmt.Errorf("parse run id: %w", err)
					}
					if err := db.Delete(id); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "removed", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dbDir, "db", "runs", "run database folder")
	return cmd
}

func withDB(dir string, f func(db *store.DB) error) error {
	db, err := store.Config{}.Open(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	return f(db)
}
