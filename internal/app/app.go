// Package app wires the daemon together: config, logging, bulb discovery,
// the frame loop and its tasks, and the scene scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/nepthar/smart-party/internal/audio"
	"github.com/nepthar/smart-party/internal/config"
	"github.com/nepthar/smart-party/internal/eventloop"
	"github.com/nepthar/smart-party/internal/runtime/supervisor"
	"github.com/nepthar/smart-party/internal/scenes"
	"github.com/nepthar/smart-party/internal/tasks"
	"github.com/nepthar/smart-party/pkg/kasa"
	logx "github.com/nepthar/smart-party/pkg/logx"
)

const stopTimeout = 5 * time.Second

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	sup    *supervisor.Supervisor
	loop   *eventloop.Loop
	scenes *scenes.Service
	reg    *kasa.Registry
	conn   net.PacketConn

	lastCfg *config.Config
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	sc := scenes.New(log.With(logx.String("comp", "scenes")))
	if err := sc.ValidateSpecs(cfg.Scenes); err != nil {
		logSvc.Close()
		return nil, err
	}

	// Reloads go through the same checks as startup; a bad edit never
	// reaches the running daemon.
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		return sc.ValidateSpecs(c.Scenes)
	})

	return &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		scenes:  sc,
		reg:     kasa.NewRegistry(),
		lastCfg: cfg,
	}, nil
}

// Run blocks until ctx is cancelled or the loop drains. It owns the whole
// lifecycle: discovery, task scheduling, background services, shutdown.
func (a *App) Run(ctx context.Context) error {
	defer a.logSvc.Close()
	cfg := a.cfgMgr.Get()

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	loop, err := eventloop.New(cfg.Loop.TargetFPS, a.log.With(logx.String("comp", "loop")))
	if err != nil {
		return err
	}
	a.loop = loop

	levelFn, err := a.scheduleAudio(cfg)
	if err != nil {
		return err
	}
	if err := a.scheduleLights(ctx, cfg, levelFn); err != nil {
		return err
	}
	if cfg.Loop.SysLoadWindow > 0 {
		if err := loop.Schedule(tasks.NewSysLoad(cfg.Loop.SysLoadWindow, os.Stdout)); err != nil {
			return err
		}
	}

	// Scenes act only through bulbs; without the pump their firings would
	// queue forever. Starting with an empty table keeps hot-reloaded scenes
	// working.
	if cfg.Lights.Enabled {
		if err := a.scenes.Apply(cfg.Scenes); err != nil {
			return err
		}
		a.scenes.Start()
	}

	a.sup.Go("config-watch", a.cfgMgr.Watch)
	updates := a.cfgMgr.Subscribe(4)
	a.sup.Go0("config-apply", func(ctx context.Context) {
		a.applyUpdates(ctx, updates)
	})

	a.log.Info("partyd running",
		logx.Float64("target_fps", cfg.Loop.TargetFPS),
		logx.Int("tasks", loop.Tasks()),
		logx.Int("bulbs", a.reg.Len()),
	)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	runErr := loop.Run(ctx)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.scenes.Stop()
	if a.conn != nil {
		_ = a.conn.Close()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	supErr := a.sup.Stop(stopCtx)

	a.log.Info("partyd stopped",
		logx.Uint64("frames", loop.Frame()),
		logx.Err(errors.Join(runErr, supErr)),
	)
	return errors.Join(runErr, supErr)
}

// scheduleAudio sets up the capture chain and returns the level sample the
// meter and light show read. Nil when audio is disabled.
func (a *App) scheduleAudio(cfg *config.Config) (func() float64, error) {
	if !cfg.Audio.Enabled {
		return nil, nil
	}

	src := audio.NewCaptureSource(audio.Config{
		Command:    cfg.Audio.Command,
		SampleRate: cfg.Audio.SampleRate,
		Device:     cfg.Audio.Device,
	}, audio.SpawnerFunc(func(name string, fn func()) {
		a.sup.Go0(name, func(context.Context) { fn() })
	}), a.log)

	sl := tasks.NewSoundLevel(src, a.log.With(logx.String("comp", "audio")))
	if err := a.loop.Schedule(sl); err != nil {
		return nil, err
	}
	levelFn := sl.Value

	if cfg.Audio.SmoothWindow > 1 {
		avg, err := eventloop.NewMovingAverage(sl.Value, cfg.Audio.SmoothWindow, 0)
		if err != nil {
			return nil, err
		}
		if err := a.loop.Schedule(avg); err != nil {
			return nil, err
		}
		levelFn = avg.Value
	}

	if cfg.Audio.Meter {
		if err := a.loop.Schedule(tasks.NewLevelMeter(levelFn, 10, os.Stdout)); err != nil {
			return nil, err
		}
	}
	return levelFn, nil
}

// scheduleLights discovers bulbs and schedules the light show and the scene
// pump. Discovery failure downgrades to a warning; the daemon still runs.
func (a *App) scheduleLights(ctx context.Context, cfg *config.Config, levelFn func() float64) error {
	if !cfg.Lights.Enabled {
		return nil
	}
	log := a.log.With(logx.String("comp", "lights"))

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("open udp socket: %w", err)
	}
	a.conn = conn

	broadcast := cfg.Lights.Broadcast
	if broadcast == "" {
		broadcast = kasa.DefaultBroadcast
	}
	dst, err := net.ResolveUDPAddr("udp4", broadcast)
	if err != nil {
		return fmt.Errorf("resolve broadcast %q: %w", broadcast, err)
	}

	discoverTimeout, err := config.ParseDurationOrDefault("lights.discover_timeout", cfg.Lights.DiscoverTimeout, time.Second)
	if err != nil {
		return err
	}
	commandTimeout, err := config.ParseDurationOrDefault("lights.command_timeout", cfg.Lights.CommandTimeout, time.Second)
	if err != nil {
		return err
	}
	transition, err := config.ParseDurationField("lights.transition", cfg.Lights.Transition)
	if err != nil {
		return err
	}

	opts := kasa.Options{
		Timeout:    commandTimeout,
		RatePerSec: cfg.Lights.RatePerSec,
		Burst:      cfg.Lights.Burst,
	}
	found, err := kasa.Discover(ctx, conn, dst, discoverTimeout, opts, log)
	if err != nil {
		log.Warn("bulb discovery failed", logx.Err(err))
	}
	for _, b := range found {
		if len(cfg.Lights.Aliases) > 0 && !aliasIn(cfg.Lights.Aliases, b.Alias()) {
			continue
		}
		a.reg.Put(b)
		log.Info("bulb found", logx.String("bulb", b.String()))
	}

	if a.reg.Len() == 0 {
		log.Warn("no bulbs available; light show disabled")
	} else if levelFn != nil {
		dimmers := make([]tasks.Dimmer, 0, a.reg.Len())
		for _, b := range a.reg.Bulbs() {
			dimmers = append(dimmers, b)
		}
		show := tasks.NewLightShow(levelFn, dimmers, tasks.LightShowOptions{
			Gain:       cfg.Lights.Gain,
			Transition: transition,
		}, log)
		if err := a.loop.Schedule(show); err != nil {
			return err
		}
	}

	pump := scenes.NewPump(a.scenes, func() []scenes.StateSetter {
		bulbs := a.reg.Bulbs()
		out := make([]scenes.StateSetter, len(bulbs))
		for i, b := range bulbs {
			out[i] = b
		}
		return out
	}, a.log.With(logx.String("comp", "scenes")))
	return a.loop.Schedule(pump)
}

// applyUpdates consumes validated config reloads. Logging, scenes and the
// config logger pick up changes live; loop and task wiring need a restart
// and the change summary says so.
func (a *App) applyUpdates(ctx context.Context, updates chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeChange(a.lastCfg, cfg)
			a.lastCfg = cfg

			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			if err := a.scenes.Apply(cfg.Scenes); err != nil {
				a.log.Warn("scene reload failed", logx.Err(err))
			}

			fields := append([]logx.Field{logx.Any("sections", changed)}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

func aliasIn(aliases []string, alias string) bool {
	for _, a := range aliases {
		if a == alias {
			return true
		}
	}
	return false
}
