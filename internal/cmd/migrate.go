package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/pageshot/internal/config"
	"github.com/tomasbasham/pageshot/internal/store"
)

// MigrateOptions holds the flags for the `migrate` command.
type MigrateOptions struct{}

var migrateLong = templates.LongDesc(`Apply any pending database migrations and exit.`)

func NewMigrateOptions() *MigrateOptions {
	return &MigrateOptions{}
}

func NewMigrateCommand(o *MigrateOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  migrateLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run()
		},
	}
}

func (o *MigrateOptions) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.DatabaseURL, store.DefaultConfig())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
