package controller_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jmercer/startgate/config"
	"github.com/jmercer/startgate/controller"
	"github.com/jmercer/startgate/device"
	"github.com/jmercer/startgate/driver/stub"
	proto "github.com/jmercer/startgate/protocol"
	"github.com/jmercer/startgate/show"
)

// testConfig shrinks the protocol timings so a full discovery round
// fits inside a unit test.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.DiscoveryWindowMs = 300
	cfg.SlotWidthMs = 30
	cfg.AckTimeoutMs = 60
	cfg.RetryCount = 3
	cfg.StartDelayMs = 300
	return cfg
}

// pump runs a device loop until the returned stop func is called.
func pump(d *device.Device) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			d.Poll()
			time.Sleep(time.Millisecond)
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func TestDiscoverRegistersInSlotOrder(t *testing.T) {
	cfg := testConfig()
	air := stub.NewAir()
	ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)

	// Attach out of slot order: arrival order on the air is still
	// id 1 (30ms slot) before id 2 (60ms slot).
	d2 := device.New(2, air.Endpoint(), proto.SystemClock, nil, nil, cfg)
	d1 := device.New(1, air.Endpoint(), proto.SystemClock, nil, nil, cfg)
	stop2 := pump(d2)
	defer stop2()
	stop1 := pump(d1)
	defer stop1()

	records := ctrl.Discover()
	if len(records) != 2 {
		t.Fatalf("Discover() found %d device(s), want 2 (announce repeats deduplicated)", len(records))
	}
	if records[0].ID != 1 || records[1].ID != 2 {
		t.Errorf("registration order = [%d %d], want [1 2]", records[0].ID, records[1].ID)
	}
	if records[0].Order != 0 || records[1].Order != 1 {
		t.Errorf("arrival orders = [%d %d], want [0 1]", records[0].Order, records[1].Order)
	}
	if !d1.Registered() || !d2.Registered() {
		t.Error("devices not registered after the round")
	}

	// The catalog is frozen between rounds: a stray late announce must
	// not grow it.
	if got := ctrl.Devices(); len(got) != 2 {
		t.Errorf("Devices() = %d entries, want 2", len(got))
	}
}

func TestLaunchDeliversAndArmsGoMarker(t *testing.T) {
	cfg := testConfig()
	air := stub.NewAir()
	ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)

	d1 := device.New(1, air.Endpoint(), proto.SystemClock, nil, nil, cfg)
	d2 := device.New(2, air.Endpoint(), proto.SystemClock, nil, nil, cfg)
	stop1 := pump(d1)
	defer stop1()
	stop2 := pump(d2)
	defer stop2()

	if got := ctrl.Discover(); len(got) != 2 {
		t.Fatalf("Discover() = %d device(s), want 2", len(got))
	}

	batch, errs := show.ParseShow("01{1,2,3}@20;02{1.5,2.5,3.5}@15", cfg.DefaultVolume)
	if len(errs) != 0 {
		t.Fatalf("ParseShow errors: %v", errs)
	}

	results := ctrl.Launch(batch)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.Acked {
			t.Errorf("device %02d not acked", r.DeviceID)
		}
	}
	if results[0].Seq == results[1].Seq {
		t.Error("directives shared a sequence id")
	}
	if batch.MasterStart == 0 {
		t.Error("Launch did not stamp the master start")
	}

	// Both devices scheduled their full show (3 steps = 6 actions).
	if p := d1.Scheduler().Pending(); p != 6 {
		t.Errorf("device 1 pending = %d, want 6", p)
	}
	if p := d2.Scheduler().Pending(); p != 6 {
		t.Errorf("device 2 pending = %d, want 6", p)
	}

	// Go marker armed at master start + earliest green (3.0s here).
	deadline, armed := ctrl.GoDeadline()
	if !armed {
		t.Fatal("go marker not armed after launch")
	}
	if want := batch.MasterStart + proto.DecisToTicks(batch.EarliestGreen); deadline != want {
		t.Errorf("go deadline = %d, want %d", deadline, want)
	}
	if batch.EarliestGreen != 30 {
		t.Errorf("EarliestGreen = %d ds, want 30", batch.EarliestGreen)
	}
	if ctrl.PollGo() {
		t.Error("go marker fired before the deadline")
	}
}

func TestLaunchContinuesPastFailedTarget(t *testing.T) {
	cfg := testConfig()
	air := stub.NewAir()
	ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)

	d1 := device.New(1, air.Endpoint(), proto.SystemClock, nil, nil, cfg)
	d2 := device.New(2, air.Endpoint(), proto.SystemClock, nil, nil, cfg)
	stop1 := pump(d1)
	stop2 := pump(d2)
	defer stop1()

	if got := ctrl.Discover(); len(got) != 2 {
		t.Fatalf("Discover() = %d device(s), want 2", len(got))
	}

	// Device 2 drops off the air after registering.
	stop2()

	batch, _ := show.ParseShow("02{1,2,3};01{1,2,3}", cfg.DefaultVolume)
	results := ctrl.Launch(batch)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	byID := map[uint8]controller.DeliveryResult{}
	for _, r := range results {
		byID[r.DeviceID] = r
	}
	if byID[2].Acked {
		t.Error("silent device 2 reported as acked")
	}
	if !byID[1].Acked {
		t.Error("device 1 not delivered after device 2 failed")
	}
	if d1.Scheduler().Pending() == 0 {
		t.Error("device 1 has no schedule after launch")
	}
}

func TestGoMarkerFiresOnce(t *testing.T) {
	cfg := testConfig()
	cfg.StartDelayMs = 50
	air := stub.NewAir()
	ctrl := controller.New(air.Endpoint(), proto.SystemClock, cfg)

	var fired int
	var gotBatch *show.Batch
	ctrl.OnGo(func(b *show.Batch) {
		fired++
		gotBatch = b
	})

	// No devices: delivery fails but the marker still arms. The show's
	// green step is 0.1s, so the deadline is ~150ms out.
	batch, _ := show.ParseShow("07{0.0,0.0,0.1}", cfg.DefaultVolume)
	ctrl.Launch(batch)

	stopAt := time.Now().Add(2 * time.Second)
	for !ctrl.PollGo() {
		if time.Now().After(stopAt) {
			t.Fatal("go marker never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if fired != 1 {
		t.Fatalf("hook fired %d times, want 1", fired)
	}
	if gotBatch == nil || gotBatch.ID != batch.ID {
		t.Error("hook did not receive the launched batch")
	}
	if ctrl.PollGo() {
		t.Error("PollGo() = true after the marker already fired")
	}
	if _, armed := ctrl.GoDeadline(); armed {
		t.Error("marker still armed after firing")
	}
}

func TestRegistryDedupAndFreeze(t *testing.T) {
	r := controller.NewRegistry()
	r.Reset()
	if !r.Add(4) {
		t.Fatal("Add(4) = false on open registry")
	}
	if r.Add(4) {
		t.Error("Add(4) = true for a duplicate")
	}
	if !r.Add(9) {
		t.Error("Add(9) = false")
	}
	r.Freeze()
	if r.Add(11) {
		t.Error("Add(11) = true on frozen registry")
	}
	if !r.Has(4) || !r.Has(9) || r.Has(11) {
		t.Error("membership wrong after freeze")
	}
	devs := r.Devices()
	if len(devs) != 2 || devs[0].ID != 4 || devs[1].ID != 9 {
		t.Errorf("Devices() = %v, want [4 9] in arrival order", devs)
	}
}
