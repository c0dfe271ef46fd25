// Package cli implements the admin command line tool. It talks to the
// profile store directly, so it must run with database access; there is no
// HTTP client mode.
package cli

import (
	"database/sql"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studypilot/backend/internal/config"
	"studypilot/backend/internal/repository/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "studypilot",
	Short: "StudyPilot admin CLI",
	Long: `StudyPilot admin CLI manages user profiles in the backing store:
inspecting plans and usage counters, promoting users to premium, and
resetting daily allowances.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("db-driver", "", "database driver: sqlite or postgres (overrides env)")
	rootCmd.PersistentFlags().String("db-path", "", "sqlite database path (overrides env)")

	_ = viper.BindPFlag("db_driver", rootCmd.PersistentFlags().Lookup("db-driver"))
	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db-path"))

	rootCmd.AddCommand(newUserCmd())
}

func initConfig() {
	viper.SetEnvPrefix("STUDYPILOT")
	viper.AutomaticEnv()
}

// openStore loads the configuration, applies CLI overrides, and connects.
// The caller must close the returned DB.
func openStore() (*postgres.ProfileRepository, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if driver := viper.GetString("db_driver"); driver != "" {
		cfg.Database.Driver = driver
	}
	if path := viper.GetString("db_path"); path != "" {
		cfg.Database.Path = path
	}

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	return postgres.NewProfileRepository(db, cfg.Database.Driver), db, nil
}
