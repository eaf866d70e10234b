package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ragc/internal/app"
)

var (
	addCollection    string
	uploadCollection string
	uploadChunkSize  int
	uploadOverlap    int
)

func newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [COLLECTION] TEXT...",
		Short: "Add a chunk of text to a collection",
		Long: `Embed a chunk of text on the service and store it in a collection.

Examples:
  ragc add docs "Go channels are typed conduits."
  ragc add --collection docs "Goroutines are cheap."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			collection, args := splitCollection(addCollection, args)
			form := app.AddForm{Collection: collection, Chunk: strings.Join(args, " ")}
			return report(cmd, ctrl.Add(cmd.Context(), form))
		},
	}
	cmd.Flags().StringVar(&addCollection, "collection", "", "target collection")
	return cmd
}

func newUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [COLLECTION] FILE",
		Short: "Upload a file to be chunked and indexed",
		Long: `Stream a file to the service, which splits it into overlapping chunks
and indexes each one. Only the first file is sent.

Examples:
  ragc upload docs notes.txt
  ragc upload --collection docs --chunk-size 500 --chunk-overlap 50 notes.txt`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			collection := uploadCollection
			if collection == "" && len(args) == 2 {
				collection, args = args[0], args[1:]
			}
			form := app.UploadForm{Collection: collection, Paths: args}
			if cmd.Flags().Changed("chunk-size") {
				form.ChunkSize = strconv.Itoa(uploadChunkSize)
			}
			if cmd.Flags().Changed("chunk-overlap") {
				form.ChunkOverlap = strconv.Itoa(uploadOverlap)
			}
			return report(cmd, ctrl.Upload(cmd.Context(), form))
		},
	}
	cmd.Flags().StringVar(&uploadCollection, "collection", "", "target collection")
	cmd.Flags().IntVar(&uploadChunkSize, "chunk-size", 1000, "chunk size in characters")
	cmd.Flags().IntVar(&uploadOverlap, "chunk-overlap", 200, "overlap between chunks in characters")
	return cmd
}
