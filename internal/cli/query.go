package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragc/internal/app"
	"ragc/internal/render"
)

var (
	searchCollection string
	searchLimit      string
	chatCollection   string
	chatLimit        string
)

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [COLLECTION] QUERY...",
		Short: "Run a similarity search",
		Long: `Search a collection and print the matching chunks, best first.

Examples:
  ragc search docs "how do channels work"
  ragc search --collection docs --limit 3 goroutines`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			collection, args := splitCollection(searchCollection, args)
			d := ctrl.Search(cmd.Context(), app.SearchForm{
				Collection: collection,
				Query:      strings.Join(args, " "),
				Limit:      searchLimit,
			})
			if d.Results != nil && d.Outcome == app.PhaseSucceeded {
				fmt.Fprintln(cmd.OutOrStdout(), render.Results(*d.Results))
			}
			return report(cmd, d)
		},
	}
	cmd.Flags().StringVar(&searchCollection, "collection", "", "collection to search")
	cmd.Flags().StringVarP(&searchLimit, "limit", "n", "", "maximum number of results")
	return cmd
}

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat PROMPT...",
		Short: "Ask the assistant a question",
		Long: `Send one prompt to the chat endpoint and print the exchange.

Examples:
  ragc chat "what are goroutines?"
  ragc chat --collection docs "summarise the design"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			prompt := strings.Join(args, " ")
			begin, ok := ctrl.BeginChat(prompt)
			if !ok {
				return fmt.Errorf("prompt must not be empty")
			}
			d := ctrl.Chat(cmd.Context(), app.ChatForm{Prompt: prompt, Collection: chatCollection, Limit: chatLimit})
			fmt.Fprintln(cmd.OutOrStdout(), render.Transcript(append(begin.Messages, d.Messages...)))
			return report(cmd, d)
		},
	}
	cmd.Flags().StringVar(&chatCollection, "collection", "", "collection to ground the answer on")
	cmd.Flags().StringVarP(&chatLimit, "limit", "n", "", "number of chunks to retrieve")
	return cmd
}
