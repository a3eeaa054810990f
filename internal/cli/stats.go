package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show alert counters and bookkeeping tags for the device",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Device.AgentID == "" {
		return errors.New("device.agent_id is not configured")
	}

	store, err := initStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open tag storage: %w", err)
	}
	defer store.Close()

	all, err := tags.New(store, cfg.Device.AgentID).All(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}

	if len(all) == 0 {
		fmt.Printf("No tags recorded for %s.\n", cfg.Device.AgentID)
		return nil
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("Tags for %s\n\n", cfg.Device.AgentID)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tVALUE")
	fmt.Fprintln(w, "---\t-----")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, cast.ToString(all[k]))
	}
	return w.Flush()
}
