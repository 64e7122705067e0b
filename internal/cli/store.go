package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/docstore"
	"github.com/matzehuels/stepgrid/pkg/document"
)

// storeCommand creates the document store commands.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save and load documents in the configured store",
		Long: `Manage documents in the store selected by the [store] section of the
config: a directory of JSON files (default) or a MongoDB collection.`,
	}

	cmd.AddCommand(c.storePushCommand())
	cmd.AddCommand(c.storePullCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeRemoveCommand())

	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(cmd *cobra.Command, fn func(docstore.Store) error) error {
	ctx := cmd.Context()
	spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Connecting to "+c.Config.Store.Backend+" store...")
	spinner.Start()
	store, err := c.newDocStore(ctx)
	if err != nil {
		spinner.StopWithError("Could not open the " + c.Config.Store.Backend + " store")
		return err
	}
	spinner.Stop()
	defer store.Close()
	return fn(store)
}

func (c *CLI) storePushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push <doc.json>",
		Short: "Save a document file to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := document.Import(args[0])
			if err != nil {
				return err
			}
			return c.withStore(cmd, func(s docstore.Store) error {
				if err := s.Put(cmd.Context(), d); err != nil {
					return err
				}
				printSuccess("Pushed %s", d)
				printKeyValue("ID", d.ID)
				return nil
			})
		},
	}
}

func (c *CLI) storePullCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull <id>",
		Short: "Write a stored document to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if output == "" {
				output = id + ".json"
			}
			return c.withStore(cmd, func(s docstore.Store) error {
				d, err := s.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := document.Export(d, output); err != nil {
					return err
				}
				printSuccess("Pulled %s", d)
				printFile(output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <id>.json)")
	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(s docstore.Store) error {
				summaries, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					printInfo("No stored documents")
					return nil
				}
				out := cmd.OutOrStdout()
				for _, sum := range summaries {
					fmt.Fprintf(out, "%s  %s  %s\n",
						StyleValue.Render(sum.ID),
						StyleDim.Render(sum.SavedAt.Local().Format(time.DateTime)),
						StyleDim.Render(fmt.Sprintf("%d entities · %d steps", sum.Entities, sum.Steps)))
				}
				return nil
			})
		},
	}
}

func (c *CLI) storeRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(s docstore.Store) error {
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess("Deleted %s", args[0])
				return nil
			})
		},
	}
}
