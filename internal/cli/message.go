package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ogulcanaydogan/slack-alert-processor/internal/processor"
	"github.com/spf13/cobra"
)

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Handle one channel message",
	Long:  `Message runs the channel alert for a single message, as if it had been published on the channel.`,
	RunE:  runMessage,
}

func init() {
	rootCmd.AddCommand(messageCmd)

	messageCmd.Flags().StringP("channel", "c", "", "Channel name (required)")
	messageCmd.Flags().StringP("data", "d", "", "Message payload")
	messageCmd.Flags().String("device", "", "Originating device name (default: looked up on the platform)")
	messageCmd.Flags().Bool("json", false, "Decode --data as JSON")
	messageCmd.Flags().String("state", "", "Read device state from a YAML snapshot instead of the platform API")

	_ = messageCmd.MarkFlagRequired("channel")
}

func runMessage(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	channel, _ := cmd.Flags().GetString("channel")
	data, _ := cmd.Flags().GetString("data")
	device, _ := cmd.Flags().GetString("device")
	asJSON, _ := cmd.Flags().GetBool("json")
	statePath, _ := cmd.Flags().GetString("state")

	ev := processor.MessageEvent{Channel: channel, Data: data, Device: device}
	if asJSON {
		var decoded any
		if err := json.Unmarshal([]byte(data), &decoded); err != nil {
			return fmt.Errorf("invalid --data JSON: %w", err)
		}
		ev.Data = decoded
	}

	p, store, err := initProcessor(cmd.Context(), cfg, statePath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := p.OnMessage(cmd.Context(), ev)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}
