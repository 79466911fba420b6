package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/taperedplus/design-intake/internal/intake"
	"github.com/taperedplus/design-intake/internal/model"
)

var chatFiles []string

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the assistant about an enquiry",
	Long:  "Answers a one-shot question. With --file, the files are processed first so the assistant can ground its answer in the extracted parameters.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnvironment(ctx, "chat")
		if err != nil {
			return err
		}
		defer env.Close()

		var (
			params  model.ParameterSet
			rawText string
		)
		if len(chatFiles) > 0 {
			var files []intake.File
			for _, path := range chatFiles {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}
				files = append(files, intake.File{Name: filepath.Base(path), Data: data})
			}
			result, err := env.processor.ProcessFiles(ctx, "", files)
			if err != nil {
				return err
			}
			params = result.Params
			rawText = result.ExtractedText
		}

		resp, err := env.assistant.Respond(ctx, strings.Join(args, " "), params, rawText)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
		if resp.RawText != "" {
			fmt.Fprintln(cmd.OutOrStdout(), resp.RawText)
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringSliceVar(&chatFiles, "file", nil, "enquiry file(s) to process for context")
	rootCmd.AddCommand(chatCmd)
}
