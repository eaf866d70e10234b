package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ragc/internal/app"
	"ragc/internal/render"
)

var (
	createVectorSize int
	createDistance   string
	deleteYes        bool
)

func newCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage collections",
		Long: `List, create, inspect and delete collections on the RAG service.

Examples:
  ragc collections list
  ragc collections create docs --size 1024 --distance COSINE
  ragc collections info docs
  ragc collections delete docs --yes`,
	}

	// Add subcommands
	cmd.AddCommand(newCollectionsListCommand())
	cmd.AddCommand(newCollectionsCreateCommand())
	cmd.AddCommand(newCollectionsInfoCommand())
	cmd.AddCommand(newCollectionsDeleteCommand())

	return cmd
}

func newCollectionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			d := ctrl.Refresh(cmd.Context())
			if err := report(cmd, d); err != nil {
				return err
			}
			if len(d.Collections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No collections.")
				return nil
			}
			for _, name := range d.Collections {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newCollectionsCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			form := app.CreateForm{
				Name:       args[0],
				VectorSize: strconv.Itoa(cfg.Defaults.VectorSize),
				Distance:   cfg.Defaults.Distance,
			}
			if cmd.Flags().Changed("size") {
				form.VectorSize = strconv.Itoa(createVectorSize)
			}
			if cmd.Flags().Changed("distance") {
				form.Distance = createDistance
			}
			return report(cmd, ctrl.Create(cmd.Context(), form))
		},
	}
	cmd.Flags().IntVar(&createVectorSize, "size", 1024, "vector size")
	cmd.Flags().StringVar(&createDistance, "distance", "COSINE", "distance metric ("+strings.Join(distanceNames(), ", ")+")")
	return cmd
}

func newCollectionsInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Show collection metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			d := ctrl.Info(cmd.Context(), args[0])
			if err := report(cmd, d); err != nil {
				return err
			}
			if d.Info != nil {
				fmt.Fprintln(cmd.OutOrStdout(), render.CollectionInfo(*d.Info))
			}
			return nil
		},
	}
}

func newCollectionsDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a collection",
		Long: `Delete a collection and every vector in it.

Without --yes the command asks for confirmation on stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ctrl, err := setup(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			confirmed := deleteYes
			if !confirmed {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete collection %q? [y/N] ", name)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				confirmed = answer == "y" || answer == "yes"
			}
			if !confirmed {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return report(cmd, ctrl.Delete(cmd.Context(), name, true))
		},
	}
	cmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
