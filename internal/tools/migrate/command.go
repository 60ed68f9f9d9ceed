package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/config"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/database"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
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
		Use:           "migrate",
		Short:         "Manage the database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file to load before reading configuration")
	root.PersistentFlags().BoolVar(&opts.ci, "ci", false, "emit a machine-readable JSON result")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending schema changes",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := run(opts, "migrate up", "apply", func(ctx context.Context) ([]string, error) {
					_, db, err := loadConfigDB(opts.envFile)
					if err != nil {
						return nil, err
					}
					if err := database.Migrate(db.WithContext(ctx)); err != nil {
						return nil, err
					}
					return []string{"schema up to date"}, nil
				})
				return err
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report which tables exist",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := run(opts, "migrate status", "status", func(ctx context.Context) ([]string, error) {
					_, db, err := loadConfigDB(opts.envFile)
					if err != nil {
						return nil, err
					}
					return tableStatus(db.WithContext(ctx)), nil
				})
				return err
			},
		},
		&cobra.Command{
			Use:   "plan",
			Short: "List tables a migration run would create",
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := run(opts, "migrate plan", "plan", func(ctx context.Context) ([]string, error) {
					_, db, err := loadConfigDB(opts.envFile)
					if err != nil {
						return nil, err
					}
					var pending []string
					for name, model := range managedModels() {
						if !db.WithContext(ctx).Migrator().HasTable(model) {
							pending = append(pending, fmt.Sprintf("create %s", name))
						}
					}
					if len(pending) == 0 {
						pending = []string{"nothing to do"}
					}
					return pending, nil
				})
				return err
			},
		},
	)
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

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func managedModels() map[string]any {
	return map[string]any{
		"users":               &domain.User{},
		"sessions":            &domain.Session{},
		"posts":               &domain.Post{},
		"comments":            &domain.Comment{},
		"bookmarks":           &domain.Bookmark{},
		"likes":               &domain.Like{},
		"idempotency_records": &domain.IdempotencyRecord{},
	}
}

func tableStatus(db *gorm.DB) []string {
	var details []string
	for name, model := range managedModels() {
		state := "missing"
		if db.Migrator().HasTable(model) {
			state = "present"
		}
		details = append(details, fmt.Sprintf("%s: %s", name, state))
	}
	return details
}
