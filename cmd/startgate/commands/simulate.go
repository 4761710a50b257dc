package commands

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmercer/startgate/config"
	"github.com/jmercer/startgate/controller"
	"github.com/jmercer/startgate/device"
	"github.com/jmercer/startgate/driver/stub"
	proto "github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/show"
)

var simDeviceCount int

var simulateCmd = &cobra.Command{
	Use:   "simulate [show]",
	Short: "Run a full show end-to-end over the in-memory radio medium",
	Long: `Spin up a controller and a set of simulated devices (each with its
own skewed clock), run a discovery round and a lamp test, then launch
the given show and log every device effect as it fires.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		showStr := "00{1,2,3}@20;01{1.5,2.5,3.5}@15"
		if len(args) == 1 {
			showStr = args[0]
		}
		return runSimulation(cfg, showStr, simDeviceCount)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simDeviceCount, "devices", 2, "Number of simulated devices")
}

func runSimulation(cfg config.Config, showStr string, deviceCount int) error {
	air := stub.NewAir()
	ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < deviceCount; i++ {
		id := uint8(i)
		// Skew each device clock so the run exercises real clock
		// resolution instead of identical time bases.
		skew := proto.Ticks(i+1) * 137_563
		clock := func() proto.Ticks { return proto.SystemClock() + skew }
		out := &device.LogOutputs{DeviceID: id}
		dev := device.New(id, air.Endpoint(), clock, out, out, cfg)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					dev.Poll()
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	defer func() {
		close(stop)
		wg.Wait()
	}()

	found := ctrl.Discover()
	if len(found) == 0 {
		return fmt.Errorf("no devices responded to discovery")
	}
	log.Printf("[Simulate] %d device(s) registered", len(found))

	ctrl.FlashAll()
	time.Sleep(700 * time.Millisecond) // let the lamp test finish

	batch, errs := show.ParseShow(showStr, cfg.DefaultVolume)
	for _, e := range errs {
		log.Printf("[Simulate] skipped entry: %v", e)
	}
	if len(batch.Directives) == 0 {
		return fmt.Errorf("no valid directives in show")
	}

	ctrl.OnGo(func(b *show.Batch) {
		log.Printf("[Simulate] GO: external timer marker for batch %s", b.ID)
	})

	results := ctrl.Launch(batch)
	for _, r := range results {
		if !r.Acked {
			log.Printf("[Simulate] device %02d missed the batch", r.DeviceID)
		}
	}

	// Run the polling loop until the show (including the optional
	// all-off step) has fully played out.
	var maxStep uint16
	for _, d := range batch.Directives {
		for i := 0; i < int(d.StepCount); i++ {
			if d.Steps[i] > maxStep {
				maxStep = d.Steps[i]
			}
		}
	}
	total := time.Duration(cfg.StartDelayMs)*time.Millisecond +
		time.Duration(maxStep)*100*time.Millisecond +
		time.Second
	deadline := time.After(total)
	for {
		select {
		case <-deadline:
			log.Printf("[Simulate] show complete")
			return nil
		default:
			ctrl.PollGo()
			time.Sleep(5 * time.Millisecond)
		}
	}
}
