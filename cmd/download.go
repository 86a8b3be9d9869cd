package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/biobricks-ai/openfda/download"
)

// DownloadMain is wrapped by NewDownloadCommand and only exported for
// testing purposes.
var DownloadMain *download.Main

// NewDownloadCommand returns a new cobra command wrapping DownloadMain.
func NewDownloadCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	DownloadMain = download.NewMain()
	downloadCommand := &cobra.Command{
		Use:   "download",
		Short: "fetch the manifest and every partition it lists, conditionally",
		Long: `Fetches the download manifest and then each dataset partition,
skipping partitions whose local copy is still fresh according to the
stored Last-Modified marker and the manifest's declared export date.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := DownloadMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := downloadCommand.Flags()
	if err := commandeer.Flags(flags, DownloadMain); err != nil {
		panic(err)
	}
	return downloadCommand
}

func init() {
	subcommandFns["download"] = NewDownloadCommand
}
