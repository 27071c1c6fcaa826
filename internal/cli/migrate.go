package cli

import (
	"fmt"

	"github.com/hiqiancheng/PoliPlay/internal/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	db, err := repository.Open(cfg.Database.Type, cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(db, log); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", cfg.Database.Type)
	return nil
}
