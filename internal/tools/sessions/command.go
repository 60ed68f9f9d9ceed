package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/config"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/database"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration
}

// NewRootCommand is the out-of-band session maintenance surface, for
// cron jobs and incident response when hitting the admin API is not an
// option.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "sessions",
		Short:         "Inspect and maintain the session table",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load before reading configuration")
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "emit a machine-readable JSON result")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "count",
			Short: "Count live sessions",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := run(opts, "sessions count", func(ctx context.Context, repo repository.SessionRepository) ([]string, error) {
					count, err := repo.CountActive()
					if err != nil {
						return nil, err
					}
					return []string{fmt.Sprintf("active sessions: %d", count)}, nil
				})
				return err
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Flag past-due sessions as expired",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := run(opts, "sessions cleanup", func(ctx context.Context, repo repository.SessionRepository) ([]string, error) {
					expired, err := repo.ExpirePastDue(time.Now().UTC())
					if err != nil {
						return nil, err
					}
					return []string{fmt.Sprintf("expired %d sessions", expired)}, nil
				})
				return err
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Revoke every active session (logs everyone out)",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := run(opts, "sessions clear", func(ctx context.Context, repo repository.SessionRepository) ([]string, error) {
					revoked, err := repo.RevokeAll()
					if err != nil {
						return nil, err
					}
					return []string{fmt.Sprintf("revoked %d sessions", revoked)}, nil
				})
				return err
			},
		},
	)

	var userID uint
	revokeUser := &cobra.Command{
		Use:   "revoke-user",
		Short: "Revoke every session belonging to one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "sessions revoke-user", func(ctx context.Context, repo repository.SessionRepository) ([]string, error) {
				revoked, err := repo.RevokeByUserID(userID)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("revoked %d sessions for user %d", revoked, userID)}, nil
			})
			return err
		},
	}
	revokeUser.Flags().UintVar(&userID, "user-id", 0, "user whose sessions to revoke")
	_ = revokeUser.MarkFlagRequired("user-id")
	root.AddCommand(revokeUser)

	return root
}

func run(opts *options, title string, fn func(ctx context.Context, repo repository.SessionRepository) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	details, err := func() ([]string, error) {
		db, err := openDB(opts.envFile)
		if err != nil {
			return nil, err
		}
		return fn(ctx, repository.NewSessionRepository(db.WithContext(ctx)))
	}()

	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	} else {
		common.PrintHumanResult(err == nil, title, details, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", title, err)
	}
	return details, nil
}

func openDB(envFile string) (*gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Open(cfg)
}
