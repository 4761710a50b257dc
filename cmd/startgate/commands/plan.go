package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jmercer/startgate/show"
)

var planCmd = &cobra.Command{
	Use:   "plan <show>",
	Short: "Validate a show description and print its command sequence",
	Long: `Parse a show description such as

    "00{1,2,3}@20;01{1.5,2.5,3.5}@15"

and print the resulting per-device command sequence without touching
the radio. Malformed entries are reported and skipped, exactly as a
live launch would treat them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		batch, errs := show.ParseShow(args[0], cfg.DefaultVolume)
		for _, e := range errs {
			fmt.Printf("skipped: %v\n", e)
		}
		if len(batch.Directives) == 0 {
			return fmt.Errorf("no valid directives in show")
		}

		type event struct {
			ds     uint16
			device uint8
			action string
		}
		labels := [4]string{"Marks (red)", "Set (orange)", "Go (green)", "Off"}
		var events []event
		for _, d := range batch.Directives {
			for i := 0; i < int(d.StepCount); i++ {
				events = append(events, event{ds: d.Steps[i], device: d.DeviceID, action: labels[i]})
			}
		}
		sort.SliceStable(events, func(i, j int) bool { return events[i].ds < events[j].ds })

		fmt.Printf("Batch %s (%d devices)\n\n", batch.ID, len(batch.Directives))
		fmt.Printf("%-8s%-8s%s\n", "Time(s)", "Device", "Action")
		fmt.Println("------------------------------")
		for _, e := range events {
			fmt.Printf("%7.1f %5d   %s\n", float64(e.ds)/10, e.device, e.action)
		}
		fmt.Printf("\nGo marker at +%.1fs after master start\n", float64(batch.EarliestGreen)/10)
		fmt.Printf("Master start delay: %dms after launch\n", cfg.StartDelayMs)
		return nil
	},
}
