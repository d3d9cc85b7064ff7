// Package cli holds the fitctl admin commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mansoorceksport/fittrack/internal/service"
	"github.com/spf13/cobra"
)

// Rebuilder recomputes derived progress from the completion history
type Rebuilder interface {
	Rebuild(ctx context.Context, userID string, dryRun bool) (*service.RebuildResult, error)
	RebuildAll(ctx context.Context, dryRun bool, each func(*service.RebuildResult, error)) error
}

// TokenPruner removes expired refresh tokens
type TokenPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// Env is what the commands operate on
type Env struct {
	Progress    Rebuilder
	SeedCatalog func(ctx context.Context) (int, error)
	Tokens      TokenPruner
}

// Opener connects the backing stores on demand. The returned func releases them.
type Opener func(ctx context.Context) (*Env, func(), error)

// NewRootCmd builds the fitctl command tree
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "fitctl",
		Short:         "fitctl runs maintenance tasks against the FitTrack stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRecomputeCmd(open),
		newSeedCmd(open),
		newTokensCmd(open),
	)
	return root
}

func withEnv(cmd *cobra.Command, open Opener, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, env)
}

func newRecomputeCmd(open Opener) *cobra.Command {
	var (
		userID string
		all    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild progress stats and personal records from the completion history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userID == "") == !all {
				return errors.New("exactly one of --user or --all is required")
			}

			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				out := cmd.OutOrStdout()
				if userID != "" {
					res, err := env.Progress.Rebuild(ctx, userID, dryRun)
					if err != nil {
						return fmt.Errorf("recompute %s: %w", userID, err)
					}
					printRebuild(out, res)
					return nil
				}

				var users, failed int
				err := env.Progress.RebuildAll(ctx, dryRun, func(res *service.RebuildResult, err error) {
					users++
					if err != nil {
						failed++
						fmt.Fprintf(out, "user %s: failed: %v\n", res.UserID, err)
						return
					}
					printRebuild(out, res)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Recomputed %d users, %d failed\n", users-failed, failed)
				if failed > 0 {
					return fmt.Errorf("%d users could not be recomputed", failed)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Recompute a single user")
	cmd.Flags().BoolVar(&all, "all", false, "Recompute every user with completions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and print without writing")
	return cmd
}

func printRebuild(out io.Writer, res *service.RebuildResult) {
	mode := ""
	if res.DryRun {
		mode = " (dry run)"
	}
	var workouts, current, longest int
	if res.Stats != nil {
		workouts = res.Stats.TotalWorkouts
		current = res.Stats.CurrentStreak
		longest = res.Stats.LongestStreak
	}
	fmt.Fprintf(out, "user %s%s: workouts=%d streak=%d/%d records=%d new_achievements=%d\n",
		res.UserID, mode, workouts, current, longest, res.PersonalRecords, len(res.NewAchievements))
}

func newSeedCmd(open Opener) *cobra.Command {
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Seed reference data",
	}
	seed.AddCommand(&cobra.Command{
		Use:   "achievements",
		Short: "Upsert the default achievement catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				n, err := env.SeedCatalog(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d achievements\n", n)
				return nil
			})
		},
	})
	return seed
}

func newTokensCmd(open Opener) *cobra.Command {
	tokens := &cobra.Command{
		Use:   "tokens",
		Short: "Manage refresh tokens",
	}
	tokens.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired refresh tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				n, err := env.Tokens.PruneExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired refresh tokens\n", n)
				return nil
			})
		},
	})
	return tokens
}
