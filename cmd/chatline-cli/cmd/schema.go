package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/chatline/internal/config"
	"github.com/nfrund/chatline/internal/database"
	"github.com/spf13/cobra"
)

var schemaTimeout time.Duration

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect or apply the SurrealDB schema",
}

var schemaPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the schema statements",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), database.Schema)
	},
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the schema to the configured database",
	Long: `Apply connects with the SURREAL_* settings from the environment or .env
and runs the schema statements. Every statement is IF NOT EXISTS, so
re-running it is harmless.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		if cfg.GetStoreBackend() != config.StoreSurreal {
			return fmt.Errorf("STORE is %q; schema apply needs the surreal backend", cfg.GetStoreBackend())
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), schemaTimeout)
		defer cancel()

		conn := database.NewConnection(cfg)
		if err := conn.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer conn.Close(context.Background())

		if err := database.ApplySchema(ctx, conn); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s/%s\n", cfg.GetDBNs(), cfg.GetDBDb())
		return nil
	},
}

func init() {
	schemaApplyCmd.Flags().DurationVar(&schemaTimeout, "timeout", 30*time.Second, "time allowed for connecting and applying")
	schemaCmd.AddCommand(schemaPrintCmd, schemaApplyCmd)
	rootCmd.AddCommand(schemaCmd)
}
