package cli

import (
	"fmt"
	"time"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/spf13/cobra"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run the scheduled offline and threshold checks once",
	Long: `Tick runs one scheduled invocation: the offline check (if enabled) and the
threshold rules (if enabled). Hosts without the HTTP intake can call this
from cron.`,
	RunE: runTick,
}

func init() {
	rootCmd.AddCommand(tickCmd)

	tickCmd.Flags().String("state", "", "Read device state from a YAML snapshot instead of the platform API")
	tickCmd.Flags().String("at", "", "Evaluation time (RFC3339, default now)")
}

func runTick(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	statePath, _ := cmd.Flags().GetString("state")
	atFlag, _ := cmd.Flags().GetString("at")

	var ev processor.ScheduleEvent
	if atFlag != "" {
		at, err := time.Parse(time.RFC3339, atFlag)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		ev.At = at
	}

	p, store, err := initProcessor(cmd.Context(), cfg, statePath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := p.OnSchedule(cmd.Context(), ev)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}
