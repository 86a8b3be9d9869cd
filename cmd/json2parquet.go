package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/biobricks-ai/openfda/build"
)

// NewJSON2ParquetCommand returns the single-file conversion command used
// by external orchestration: one JSON input, one parquet output, non-zero
// exit on malformed or missing input.
func NewJSON2ParquetCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "json2parquet <input_json_file> <output_parquet_file>",
		Short: "convert one JSON file to parquet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return build.ConvertFile(args[0], args[1])
		},
	}
}

func init() {
	subcommandFns["json2parquet"] = NewJSON2ParquetCommand
}
