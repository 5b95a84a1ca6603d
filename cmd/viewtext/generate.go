package main

import (
	"bytes"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurodesk/viewtext/pkg/config"
	"github.com/neurodesk/viewtext/pkg/provider"
)

func (a *app) generateInputsCmd() *cobra.Command {
	var output, prefix string
	cmd := &cobra.Command{
		Use:     "generate-inputs",
		Short:   "Generate passthrough input definitions from JSON on stdin",
		Example: `  echo '{"name": "John", "age": 30}' | viewtext generate-inputs`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := pipedInput(cmd)
			if in == nil {
				return errors.New("no stdin data provided; pipe a JSON object to generate inputs")
			}
			data, err := provider.ReadJSON(in)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := config.EncodeInputs(&buf, config.GenerateInputs(data, prefix)); err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.printf("%s %s\n", p.title.Render("Input definitions written to:"), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Prefix for generated input names")
	return cmd
}
