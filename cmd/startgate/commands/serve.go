package commands

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmercer/startgate/api"
	"github.com/jmercer/startgate/controller"
	"github.com/jmercer/startgate/device"
	"github.com/jmercer/startgate/driver/stub"
	proto "github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/show"
)

var (
	serveAddr    string
	serveDevices int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller with its HTTP control plane",
	Long: `Start the controller and expose it over HTTP:

    GET  /devices   registry from the last discovery round
    GET  /status    uptime, devices, last launched batch
    POST /discover  run a discovery round
    POST /flash     lamp-test every registered device
    POST /start     {"show": "00{1,2,3}@20;..."} launch a batch

Runs over the in-memory medium with --sim-devices simulated units;
hardware deployments construct api.Server around a controller built on
their own RadioDriver.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.HTTPAddr = serveAddr
		}

		air := stub.NewAir()
		ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)
		ctrl.OnGo(func(b *show.Batch) {
			log.Printf("[Serve] GO: batch %s reached its earliest green", b.ID)
		})

		for i := 0; i < serveDevices; i++ {
			id := uint8(i)
			out := &device.LogOutputs{DeviceID: id}
			dev := device.New(id, air.Endpoint(), proto.SystemClock, out, out, cfg)
			go func() {
				for {
					dev.Poll()
					time.Sleep(time.Millisecond)
				}
			}()
		}

		// The go marker is a polled deadline; give it a pump so HTTP
		// clients see it fire without having to poll themselves.
		go func() {
			for {
				ctrl.PollGo()
				time.Sleep(5 * time.Millisecond)
			}
		}()

		return api.NewServer(ctrl, cfg.DefaultVolume).ListenAndServe(cfg.HTTPAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().IntVar(&serveDevices, "sim-devices", 2, "Number of simulated devices on the in-memory medium")
}
