package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prereqgraph/prereqgraph/internal/utils"
	"github.com/prereqgraph/prereqgraph/pkg/catalog"
	"github.com/prereqgraph/prereqgraph/pkg/expr"
	"github.com/prereqgraph/prereqgraph/pkg/lexer"
	"github.com/prereqgraph/prereqgraph/pkg/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse [description]",
	Short: "Parse a single description and print its clauses",
	Long: `Parses one course description, given as arguments or on stdin, and prints the
prerequisite and concurrency expressions found in it. Subject codes are taken
from the cache (or --catalog) plus any given with --known.`,
	Example: `  prereqgraph parse --subject CSE "Prereq: 2231, 2321, and Stat 3460 or 3470."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		known, _ := cmd.Flags().GetString("known")
		asJSON, _ := cmd.Flags().GetBool("json")
		tokens, _ := cmd.Flags().GetBool("tokens")

		if subject == "" {
			return errors.New("--subject is required")
		}
		subject = strings.ToUpper(subject)

		description := strings.Join(args, " ")
		if description == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			description = string(data)
		}

		ids := append([]string{subject}, catalog.ParseSubjectList(known)...)
		catalogPath, _ := cmd.Flags().GetString("catalog")
		if _, err := os.Stat(getDBPath(cmd)); err == nil || catalogPath != "" {
			courses, err := loadCourses(context.Background(), cmd)
			if err != nil {
				return err
			}
			ids = append(ids, catalog.SubjectIDs(courses)...)
		}
		subjects := lexer.NewSubjects(ids...)

		toks := lexer.Tokenize(description, subjects)
		if tokens {
			for _, t := range toks {
				fmt.Printf("%4d  %-10s %s\n", t.Pos, t.Kind, t.Text)
			}
		}

		clauses := parser.Parse(toks, subject)
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(clauses)
		}

		fmt.Printf("Prereqs: %s\n", expr.String(clauses.Prereq))
		fmt.Printf("Concur:  %s\n", expr.String(clauses.Concur))
		for _, msg := range append(expr.Errors(clauses.Prereq), expr.Errors(clauses.Concur)...) {
			utils.Log.Warn(msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().String("subject", "", "Subject of the course the description belongs to")
	parseCmd.Flags().String("known", "", "Extra comma separated subject codes to recognise")
	parseCmd.Flags().String("catalog", "", "Read subject codes from this catalog JSON file instead of the database")
	parseCmd.Flags().Bool("json", false, "Print the expression trees as JSON")
	parseCmd.Flags().Bool("tokens", false, "Also print the token stream")
}
