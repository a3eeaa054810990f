package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the effective configuration as YAML",
	Long:  `Export prints the configuration after defaults and environment overrides are applied. Secrets are masked unless --show-secrets is set.`,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Bool("show-secrets", false, "Print webhook URL, tokens and passwords in clear text")
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	showSecrets, _ := cmd.Flags().GetBool("show-secrets")
	if !showSecrets {
		mask(&cfg.Slack.WebhookURL)
		mask(&cfg.Platform.Token)
		mask(&cfg.Storage.Redis.Password)
		mask(&cfg.MQTT.Password)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}
