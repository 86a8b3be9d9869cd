package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/biobricks-ai/openfda/build"
)

// BuildMain is wrapped by NewBuildCommand and only exported for testing
// purposes.
var BuildMain *build.Main

// NewBuildCommand returns a new cobra command wrapping BuildMain.
func NewBuildCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	BuildMain = build.NewMain()
	buildCommand := &cobra.Command{
		Use:   "build",
		Short: "convert every downloaded partition to parquet",
		Long: `Converts each downloaded JSON partition into a parquet file under the
brick path, mirroring the raw directory layout. Outputs newer than their
inputs are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := BuildMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := buildCommand.Flags()
	if err := commandeer.Flags(flags, BuildMain); err != nil {
		panic(err)
	}
	return buildCommand
}

func init() {
	subcommandFns["build"] = NewBuildCommand
}
