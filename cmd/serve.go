package cmd

import (
	"github.com/spf13/cobra"

	"github.com/prereqgraph/prereqgraph/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph and course cache over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		user, _ := cmd.Flags().GetString("user")
		pass, _ := cmd.Flags().GetString("pass")
		static, _ := cmd.Flags().GetString("static")

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		s := server.New(db, user, pass)
		s.StaticDir = static
		return s.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("user", "", "Basic auth username (empty disables auth)")
	serveCmd.Flags().String("pass", "", "Basic auth password")
	serveCmd.Flags().String("static", "", "Directory served at / (e.g. public)")
}
