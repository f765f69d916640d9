package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/cyfral-controller/migrations"

	"github.com/nerrad567/cyfral-controller/internal/api"
	"github.com/nerrad567/cyfral-controller/internal/hardware"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/config"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/database"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/influxdb"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/logging"
	"github.com/nerrad567/cyfral-controller/internal/infrastructure/mqtt"
	"github.com/nerrad567/cyfral-controller/internal/intercom"
	"github.com/nerrad567/cyfral-controller/internal/journal"
)

// run wires configuration, hardware and infrastructure into a controller and
// drives it until ctx is cancelled.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - configPath: YAML configuration file
//
// Returns:
//   - error: Startup failures (config, hardware, database, influx, API bind);
//     nil on clean shutdown
func run(ctx context.Context, configPath string) error {
	log := logging.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("device_id", cfg.Device.ID)
	log.Info("starting cyfrald",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolving timezone: %w", err)
	}

	hw, err := hardware.Open(cfg.Hardware, loc, log.Component("hardware"))
	if err != nil {
		return fmt.Errorf("opening hardware: %w", err)
	}
	defer closeLogged(log, "hardware", hw.Close)

	checks := map[string]api.HealthChecker{}
	var recorders intercom.MultiRecorder

	var events *journal.Journal
	if cfg.Database.Enabled {
		db, dbErr := openJournalDB(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		defer closeLogged(log, "database", db.Close)
		log.Info("event journal ready", "path", cfg.Database.Path)

		events = journal.New(db.DB, cfg.Device.ID)
		writer := journal.NewWriter(events, journal.WriterConfig{
			Retention: time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour,
			Logger:    log.Component("journal"),
		})
		writer.Start()
		defer closeLogged(log, "journal writer", writer.Close)

		recorders = append(recorders, writer)
		checks["database"] = db
	}

	if cfg.InfluxDB.Enabled {
		influx, influxErr := influxdb.Connect(cfg.InfluxDB, cfg.Device.ID)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer closeLogged(log, "influxdb", influx.Close)
		influx.SetOnError(func(err error) {
			log.Warn("InfluxDB write failed", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

		recorders = append(recorders, influx)
		checks["influxdb"] = influx
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log.Component("websocket"))
		recorders = append(recorders, hub)
	}

	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT connection lost", "error", err)
	})
	checks["mqtt"] = mqttClient

	unmute, mute := cfg.SoundWindow()
	ctrl, err := intercom.New(intercom.Options{
		SoundRelay:   hw.SoundRelay,
		HandsetRelay: hw.HandsetRelay,
		DoorButton:   hw.DoorButton,
		CallLine:     hw.CallLine,
		TimeSource:   hw.Clock,
		Transport:    &mqttTransport{client: mqttClient},
		Topics:       intercomTopics(mqttClient.Topics()),
		Failure:      hw.StatusLED,
		Recorder:     recorders,
		Logger:       log.Component("intercom"),
		Window: &intercom.SoundWindow{
			Unmute: intercom.TimeOfDayFromOffset(unmute),
			Mute:   intercom.TimeOfDayFromOffset(mute),
		},
		Debounce:           cfg.Debounce(),
		Settle:             cfg.Settle(),
		PollInterval:       cfg.PollInterval(),
		ReevaluateInterval: cfg.SoundReevaluateInterval(),
		AutoOpenDuration:   cfg.AutoOpenDuration(),
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			Logger:     log.Component("api"),
			Controller: ctrl,
			Journal:    journalLister(events),
			Checks:     checks,
			Hub:        hub,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr = srv.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer closeLogged(log, "api", srv.Close)
	}

	stopDebug := debugOnSignal(log)
	defer stopDebug()

	if hw.Simulated != nil {
		stop := toggleOnSignal(hw.Simulated, log)
		defer stop()
	}

	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("running controller: %w", err)
	}
	log.Info("cyfrald stopped")
	return nil
}

func openJournalDB(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// journalLister avoids handing the API a typed nil when the journal is off.
func journalLister(j *journal.Journal) api.EventLister {
	if j == nil {
		return nil
	}
	return j
}

// toggleOnSignal flips the simulated call line on SIGUSR1 so a call can be
// rung without hardware: kill -USR1 <pid> to start ringing, again to stop.
func toggleOnSignal(sensor *hardware.SimSensor, log *logging.Logger) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigs:
				ringing := !sensor.Asserted()
				sensor.Set(ringing)
				log.Info("simulated call line toggled", "asserted", ringing)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// debugOnSignal toggles debug logging on SIGUSR2 for every component.
func debugOnSignal(log *logging.Logger) func() {
	base := log.Level()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR2)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigs:
				level := log.ToggleDebug(base)
				log.Info("log level changed", "level", level.String())
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func closeLogged(log *logging.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("error closing "+name, "error", err)
		return
	}
	log.Debug(name + " closed")
}
