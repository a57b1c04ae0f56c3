// cmd/blaster/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/shaft-blaster/internal/actuator"
	"github.com/tamzrod/shaft-blaster/internal/cell"
	"github.com/tamzrod/shaft-blaster/internal/config"
	"github.com/tamzrod/shaft-blaster/internal/controller"
	"github.com/tamzrod/shaft-blaster/internal/indicator"
	"github.com/tamzrod/shaft-blaster/internal/line"
	"github.com/tamzrod/shaft-blaster/internal/machine"
	"github.com/tamzrod/shaft-blaster/internal/remoteio"
	rmodbus "github.com/tamzrod/shaft-blaster/internal/remoteio/modbus"
	"github.com/tamzrod/shaft-blaster/internal/status"
	"github.com/tamzrod/shaft-blaster/internal/store"
	"github.com/tamzrod/shaft-blaster/internal/watchdog"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: blaster <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	b := cfg.Blaster

	// --------------------
	// I/O binding
	// --------------------

	var pollers []controller.Poller
	bind := &binder{lines: b.Lines}

	if b.RemoteIO != nil {
		bank, closeBank, err := remoteio.Build(*b.RemoteIO)
		if err != nil {
			log.Fatalf("remote io build failed (endpoint=%s): %v", b.RemoteIO.Endpoint, err)
		}
		defer closeBank()
		bind.bank = bank
		pollers = append(pollers, bank)
	}

	mustIn := func(name string) line.Input {
		in, err := bind.input(name)
		if err != nil {
			log.Fatalf("input bind failed: %v", err)
		}
		return in
	}
	mustOut := func(name string) line.Output {
		out, err := bind.output(name)
		if err != nil {
			log.Fatalf("output bind failed: %v", err)
		}
		return out
	}

	// ---- actuator ----
	var al actuator.Lines
	for i, name := range config.BitLines {
		al.Bits[i] = mustOut(name)
	}
	al.Drive = mustOut(config.LineDrive)
	al.Busy = mustIn(config.LineBusy)
	if b.Actuator.HomeConfirm {
		al.Home = mustIn(config.LineHomeSensor)
	}

	drv, err := actuator.New(al, actuator.Config{
		Strobe:  ms(b.Actuator.StrobeMs),
		Timeout: ms(b.Actuator.TimeoutMs),
	})
	if err != nil {
		log.Fatalf("actuator init failed: %v", err)
	}

	// ---- indicator ----
	var ind indicator.Indicator = &indicator.Logger{}
	if bind.has(config.LampGreen) {
		light, err := indicator.NewStackLight(
			mustOut(config.LampGreen),
			mustOut(config.LampRed),
			mustOut(config.LampWhite),
		)
		if err != nil {
			log.Fatalf("stack light init failed: %v", err)
		}
		ind = indicator.Multi(light, ind)
	}

	// ---- persistence ----
	st, err := store.NewFileStore(b.Persist.Path)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	rec, err := st.Load()
	if err != nil {
		log.Fatalf("store load failed: %v", err)
	}

	// ---- machine ----
	// Shared with the watchdog hook.
	relay := line.SyncOutput(mustOut(config.LineRelay))
	m, err := machine.New(
		machine.Deps{Motor: drv, Relay: relay, Indicator: ind},
		machine.Config{
			Duration:        ms(int(rec.DurationMs)),
			CountAborted:    *b.CountAbortedBlasts,
			PneumaticSettle: ms(b.PneumaticSettleMs),
		},
		rec.TotalCount,
		time.Now(),
	)
	if err != nil {
		log.Fatalf("machine init failed: %v", err)
	}

	// ---- cell handshake (optional) ----
	lines := controller.Lines{
		Shaft:      mustIn(config.LineShaft),
		Door:       mustIn(config.LineDoor),
		ModeManual: mustIn(config.LineModeManual),
		Pressure:   mustIn(config.LinePressure),
		Buttons: controller.Buttons{
			Home:         mustIn(config.BtnHome),
			Extend:       mustIn(config.BtnExtend),
			Test:         mustIn(config.BtnTest),
			Ack:          mustIn(config.BtnAck),
			DurationUp:   mustIn(config.BtnDurationUp),
			DurationDown: mustIn(config.BtnDurationDown),
			ResetCount:   mustIn(config.BtnResetCount),
			Material:     mustIn(config.BtnMaterial),
		},
	}

	var hs *cell.Handshake
	if bind.has(config.LineCellPowered) {
		ci, err := bind.inputs(config.CellInputs...)
		if err != nil {
			log.Fatalf("cell bind failed: %v", err)
		}
		lines.Cell = &controller.CellLines{Powered: ci[0], Auto: ci[1], Faulted: ci[2], Shaft: ci[3]}

		hs, err = cell.New(cell.Outputs{
			MachineSafe: mustOut(config.LineMachineSafe),
			Blasting:    mustOut(config.LineBlasting),
			Heartbeat:   mustOut(config.LineHeartbeat),
		}, ms(b.HeartbeatMs))
		if err != nil {
			log.Fatalf("cell handshake init failed: %v", err)
		}
	}

	// ---- status mirror (optional) ----
	var sw controller.StatusWriter
	if sc := b.Status; sc != nil {
		cli, err := rmodbus.NewEndpointClient(rmodbus.Config{
			Endpoint: sc.Endpoint,
			Timeout:  ms(sc.TimeoutMs),
		})
		if err != nil {
			log.Fatalf("status client failed (endpoint=%s): %v", sc.Endpoint, err)
		}
		defer cli.Close()

		w, err := status.NewWriter(status.Config{
			UnitID:     sc.UnitID,
			BaseSlot:   sc.BaseSlot,
			DeviceName: sc.DeviceName,
		}, cli)
		if err != nil {
			log.Fatalf("status writer init failed: %v", err)
		}
		sw = w
	}

	// ---- liveness ----
	var dev watchdog.Device
	if b.Watchdog.Device != "" {
		dev, err = watchdog.Open(b.Watchdog.Device, ms(b.Watchdog.TimeoutMs))
		if err != nil {
			log.Fatalf("watchdog device failed: %v", err)
		}
	}

	var ctl *controller.Controller
	wd, err := watchdog.New(ms(b.Watchdog.TimeoutMs), func(err error) {
		log.Printf("control loop stalled: %v", err)
		_ = relay.Set(false)
		if ctl != nil {
			if ferr := ctl.Flush(); ferr != nil {
				log.Printf("flush failed: %v", ferr)
			}
		}
		os.Exit(1)
	}, dev)
	if err != nil {
		log.Fatalf("watchdog init failed: %v", err)
	}

	// ---- controller ----
	ctl, err = controller.New(
		controller.Config{
			Cycle:           ms(b.CycleMs),
			Debounce:        ms(b.DebounceMs),
			PersistInterval: ms(b.Persist.IntervalMs),
			ExtendPosition:  actuator.Position(b.Operator.ExtendPosition),
			TestCycles:      b.Operator.TestCycles,
		},
		lines,
		controller.Deps{
			Machine:   m,
			Handshake: hs,
			Store:     st,
			Watchdog:  wd,
			Pollers:   pollers,
			Status:    sw,
		},
		rec,
	)
	if err != nil {
		log.Fatalf("controller init failed: %v", err)
	}

	// --------------------
	// Run until signalled
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wd.Start()
	log.Printf("blaster running (config=%s cycle_ms=%d)", cfgPath, b.CycleMs)
	ctl.Run(ctx)

	// ---- shutdown ----
	log.Printf("shutting down")
	if err := relay.Set(false); err != nil {
		log.Printf("relay release failed: %v", err)
	}
	if hs != nil {
		if err := hs.Reset(time.Now()); err != nil {
			log.Printf("handshake release failed: %v", err)
		}
	}
	if err := ctl.Flush(); err != nil {
		log.Printf("flush failed: %v", err)
	}
	if err := wd.Stop(); err != nil {
		log.Printf("watchdog stop failed: %v", err)
	}
}
