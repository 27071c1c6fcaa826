package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/feishu"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Check the Feishu app credentials by fetching a tenant token",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	client, err := feishu.NewClient(cfg.Export.Feishu, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := client.Tokens().Token(ctx)
	if err != nil {
		return fmt.Errorf("feishu credentials rejected: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok, tenant token %s\n", maskToken(token))
	return nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
