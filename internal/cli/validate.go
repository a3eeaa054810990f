package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and threshold rules",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	problems := cfg.RuleProblems()
	if len(problems) == 0 {
		fmt.Printf("Configuration OK (%d threshold rules)\n", len(cfg.ThresholdAlerts.Rules))
		return nil
	}

	idx := make([]int, 0, len(problems))
	for i := range problems {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	for _, i := range idx {
		r := cfg.ThresholdAlerts.Rules[i]
		fmt.Printf("rule %d (%s): %v\n", i, r.TagName, problems[i])
	}
	return fmt.Errorf("%d of %d threshold rules are invalid and will be skipped", len(problems), len(cfg.ThresholdAlerts.Rules))
}
