package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taperedplus/design-intake/internal/model"
	"github.com/taperedplus/design-intake/pkg/monday"
)

var searchShowDetails bool

var searchCmd = &cobra.Command{
	Use:   "search <project name>",
	Short: "Search the enquiry board for matching projects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnvironment(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		projectName := strings.Join(args, " ")
		result, err := env.monday.SearchProjects(ctx, projectName)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !result.Exists {
			fmt.Fprintf(out, "no existing projects match %q — new enquiry\n", projectName)
			return nil
		}

		fmt.Fprintf(out, "%d candidate(s) for %q:\n", len(result.Matches), projectName)
		for _, m := range result.Matches {
			fmt.Fprintf(out, "  %-12s %.2f  %s", m.ID, m.Similarity, m.Name)
			if m.Title != "" && m.Title != m.Name {
				fmt.Fprintf(out, " (%s)", m.Title)
			}
			fmt.Fprintln(out)
		}

		if searchShowDetails && result.BestMatch != nil {
			item, err := env.monday.GetProjectByID(ctx, result.BestMatch.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nBest match %s (%s):\n", item.Name, item.ID)
			params := monday.BoardParameters(item, env.columns)
			for _, key := range model.ParameterKeys {
				if value, ok := params[key]; ok {
					fmt.Fprintf(out, "  %-20s %s\n", key+":", value)
				}
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchShowDetails, "details", false, "fetch and print the best match's board parameters")
	rootCmd.AddCommand(searchCmd)
}
