package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/memohai/linerag/internal/config"
	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/logger"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Inspect conversation store mappings",
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every conversation and the store it is bound to",
	RunE:  runStoresList,
}

func init() {
	storesCmd.AddCommand(storesListCmd)
}

func runStoresList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.LineCredentialFields...)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	store, closeStore, err := openStore(cmd.Context(), logger.L, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tSTORE\tDISPLAY NAME\tCREATED")
	for _, e := range entries {
		kind, id := describeKey(e.Key)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", kind, id, e.Handle.StoreName, e.Handle.DisplayName, e.Handle.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// describeKey splits a registry key into the conversation kind and id.
// Shared stores are not conversations and keep their raw key.
func describeKey(key string) (string, string) {
	id, err := conversation.ParseKey(key)
	if err != nil {
		return "shared", key
	}
	return string(id.Kind), id.ID
}
