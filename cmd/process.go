package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/taperedplus/design-intake/internal/export"
	"github.com/taperedplus/design-intake/internal/intake"
	"github.com/taperedplus/design-intake/internal/model"
)

var (
	processOutput string
	processType   string
)

var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Extract design parameters from enquiry files",
	Long:  "Processes .eml and .pdf enquiry files, extracts the design parameters, and prints them or writes an xlsx workbook.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnvironment(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		var files []intake.File
		for _, path := range args {
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

		if processType != "" {
			cls := model.Classification(processType)
			if cls != model.NewEnquiry && cls != model.Amendment {
				return eris.Errorf("invalid --type %q (want %q or %q)", processType, model.NewEnquiry, model.Amendment)
			}
			params, err := env.processor.Reextract(ctx, result.ExtractedText, cls)
			if err != nil {
				return err
			}
			result.Params = params
		}

		if processOutput != "" {
			if err := export.WriteFile(result.Params, result.ExtractedText, processOutput); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", processOutput)
			return nil
		}

		if result.ProjectName != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Project: %s\n\n", result.ProjectName)
		}
		for _, key := range model.ParameterKeys {
			if v, ok := result.Params[key]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", key+":", v)
			}
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "write results to an xlsx file")
	processCmd.Flags().StringVar(&processType, "type", "", "force enquiry type (New Enquiry or Amendment)")
	rootCmd.AddCommand(processCmd)
}
