package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the course graph to PostgreSQL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("postgres-url")
		if url == "" {
			url = viper.GetString("postgres.url")
		}
		if url == "" {
			return errors.New("no PostgreSQL URL: set --postgres-url or postgres.url")
		}

		ctx := context.Background()
		g, err := buildGraph(ctx, cmd)
		if err != nil {
			return err
		}

		pg, err := export.NewPostgres(ctx, url)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Export(ctx, g); err != nil {
			return err
		}
		utils.Log.Infof("Exported %d courses and %d links", len(g.Nodes), len(g.Links))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addGraphFlags(exportCmd)
	exportCmd.Flags().String("postgres-url", "", "PostgreSQL connection string (default: postgres.url)")
}
