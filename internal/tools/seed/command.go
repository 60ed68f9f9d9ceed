package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/config"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/database"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/tools/common"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "seed",
		Short:         "Seed baseline data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load before reading configuration")
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "emit a machine-readable JSON result")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")

	var adminEmail string
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Create the admin account and sample stories if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed apply", "apply", func(ctx context.Context) ([]string, error) {
				db, err := openDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				report, err := database.SeedSync(db.WithContext(ctx), adminEmail)
				if err != nil {
					return nil, err
				}
				return reportDetails(report), nil
			})
			return err
		},
	}
	apply.Flags().StringVar(&adminEmail, "admin-email", "", "email for the seeded admin account")

	dryRun := &cobra.Command{
		Use:   "dry-run",
		Short: "Show what a seed run would change",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed dry-run", "dry-run", func(ctx context.Context) ([]string, error) {
				db, err := openDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				tx := db.WithContext(ctx).Begin()
				if tx.Error != nil {
					return nil, tx.Error
				}
				defer tx.Rollback()
				report, err := database.SeedSync(tx, adminEmail)
				if err != nil {
					return nil, err
				}
				return reportDetails(report), nil
			})
			return err
		},
	}

	var promoteEmail string
	promote := &cobra.Command{
		Use:   "promote-admin",
		Short: "Grant admin to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := run(opts, "seed promote-admin", "promote", func(ctx context.Context) ([]string, error) {
				db, err := openDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if err := database.PromoteAdmin(db.WithContext(ctx), promoteEmail); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("%s is now an admin", promoteEmail)}, nil
			})
			return err
		},
	}
	promote.Flags().StringVar(&promoteEmail, "email", "", "account email to promote")
	_ = promote.MarkFlagRequired("email")

	root.AddCommand(apply, dryRun, promote)
	return root
}

func run(opts *options, title, action string, fn func(ctx context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	details, err := fn(ctx)
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	} else {
		common.PrintHumanResult(err == nil, title, details, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
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

func reportDetails(report *database.SeedReport) []string {
	if report.Noop {
		return []string{"nothing to do"}
	}
	var details []string
	if report.CreatedAdmin {
		details = append(details, fmt.Sprintf("created admin %s", report.AdminEmail))
		details = append(details, fmt.Sprintf("generated password: %s", report.GeneratedPassword))
	}
	if report.CreatedPosts > 0 {
		details = append(details, fmt.Sprintf("created %d sample posts", report.CreatedPosts))
	}
	return details
}
