package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/storage"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prereqgraph",
	Short: "Builds a course prerequisite graph from catalog descriptions.",
	Long: `prereqgraph fetches course descriptions from collegescheduler, caches them in
a local database, reads the "Prereq:" and "Concur:" clauses out of each
description and turns them into a graph of course dependencies.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelString, _ := cmd.Flags().GetString("loglevel")
		return utils.SetLogLevel(levelString)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.prereqgraph.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: db.path from config)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".prereqgraph")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()
	// The session cookie is usually exported as COOKIE.
	_ = viper.BindEnv("collegescheduler.cookie", "COOKIE")

	viper.SetDefault("collegescheduler.cookie", "")
	viper.SetDefault("collegescheduler.baseurl", catalog.DefaultBaseURL)
	viper.SetDefault("collegescheduler.term", catalog.DefaultTerm)
	viper.SetDefault("collegescheduler.delay", catalog.DefaultDelay.String())
	viper.SetDefault("db.path", "prereqgraph.sqlite")
	viper.SetDefault("postgres.url", "")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".prereqgraph.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Debugf("Could not create config file: %s", err)
			}
		}
	}
}

func getDBPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("dbpath"); p != "" {
		return p
	}
	return viper.GetString("db.path")
}

func openDB(cmd *cobra.Command) (*storage.DB, error) {
	dbPath := getDBPath(cmd)
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return storage.Open(dbPath)
}

// loadCourses reads the catalog from --catalog if given, else from the cache.
func loadCourses(ctx context.Context, cmd *cobra.Command) ([]catalog.Course, error) {
	if path, _ := cmd.Flags().GetString("catalog"); path != "" {
		return catalog.LoadCourses(path)
	}

	db, err := openDB(cmd)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ListCourses(ctx, storage.ListOptions{})
}
