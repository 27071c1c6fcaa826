package cli

import (
	"fmt"

	"github.com/hiqiancheng/PoliPlay/internal/app"
	"github.com/hiqiancheng/PoliPlay/internal/config"
	"github.com/hiqiancheng/PoliPlay/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "policyctl",
	Short: "PoliPlay operator tool",
	Long: `policyctl runs PoliPlay operations outside the HTTP server:
schema migrations, end-to-end policy analysis, report export and
export credential checks.

Settings come from the same YAML file as the server. POLIPLAY_CONFIG
or --config selects the file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $POLIPLAY_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig maps POLIPLAY_* environment variables onto the flags
func initConfig() {
	viper.SetEnvPrefix("POLIPLAY")
	viper.AutomaticEnv()
}

func configPath() string {
	if p := viper.GetString("config"); p != "" {
		return p
	}
	return config.Path()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}
	if viper.GetBool("verbose") {
		cfg.Log.Mode = "development"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if !viper.GetBool("verbose") {
		// keep stdout clean for command output
		return zap.NewNop(), nil
	}
	return logger.New(cfg.Log.Mode)
}

// openApp loads the configuration and wires the service
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return app.New(cfg, log)
}
