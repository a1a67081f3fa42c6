package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/export"
	"github.com/prereqgraph/prereqgraph/pkg/graph"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the course graph JSON",
	Long: `Parses every cached course description and writes the resulting graph for the
renderer. All subjects are drawn unless --subjects narrows them; references to
courses outside the drawn subjects are dropped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outPath, _ := cmd.Flags().GetString("out")
		g, err := buildGraph(context.Background(), cmd)
		if err != nil {
			return err
		}
		if err := export.WriteGraphJSON(outPath, g); err != nil {
			return err
		}
		utils.Log.Infof("Wrote %s", outPath)
		return nil
	},
}

// buildGraph is shared by the commands that need a graph.
func buildGraph(ctx context.Context, cmd *cobra.Command) (*graph.Graph, error) {
	subjects, _ := cmd.Flags().GetString("subjects")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	courses, err := loadCourses(ctx, cmd)
	if err != nil {
		return nil, err
	}
	utils.Log.Infof("Loaded %d courses", len(courses))

	included := catalog.ParseSubjectList(subjects)
	if len(included) == 0 {
		included = catalog.SubjectIDs(courses)
	}

	b := &graph.Builder{Concurrency: concurrency, Log: utils.Log}
	return b.Construct(courses, included), nil
}

func addGraphFlags(cmd *cobra.Command) {
	cmd.Flags().String("catalog", "", "Read courses from this catalog JSON file instead of the database")
	cmd.Flags().StringP("subjects", "s", "", "Comma separated subjects to include (default: all)")
	cmd.Flags().IntP("concurrency", "t", 8, "Descriptions parsed in parallel")
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addGraphFlags(buildCmd)
	buildCmd.Flags().StringP("out", "o", export.DefaultGraphPath, "Output file")
}
