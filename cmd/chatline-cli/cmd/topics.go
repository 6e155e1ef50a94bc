package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/nfrund/chatline/internal/pubsub"
	"github.com/spf13/cobra"

	// Packages that declare bus topics.
	_ "github.com/nfrund/chatline/internal/chat"
	_ "github.com/nfrund/chatline/internal/presence"
	_ "github.com/nfrund/chatline/internal/websocket"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the in-process bus topics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOPIC\tPAYLOAD\tDESCRIPTION")
		for _, t := range pubsub.DefaultCatalog.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Payload, t.Description)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
