// Command reflow-controller drives a hot plate through a solder reflow
// profile and publishes its progress to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/reflow-controller/internal/config"
	"github.com/sweeney/reflow-controller/internal/csvlog"
	"github.com/sweeney/reflow-controller/internal/gpio"
	"github.com/sweeney/reflow-controller/internal/mqtt"
	"github.com/sweeney/reflow-controller/internal/session"
	"github.com/sweeney/reflow-controller/internal/status"
	"github.com/sweeney/reflow-controller/internal/thermo"
	"github.com/sweeney/reflow-controller/internal/web"
)

// reporterDepth is enough queued ticks for a broker stall of ~100s at 200ms.
const reporterDepth = 512

// statusRefresh is how often connectivity is copied into the status tracker.
const statusRefresh = time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file (empty for the built-in Sn63/Pb37 profile)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	clientID := flag.String("client-id", "reflow-controller", "MQTT client ID")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	logDir := flag.String("log-dir", ".", "Directory for per-run CSV logs (empty to disable)")
	printTemp := flag.Bool("print-temp", false, "Print the plate temperature and exit")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: load config: %v", err)
		}
	}

	if err := run(cfg, *broker, *clientID, *httpAddr, *logDir, *printTemp); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, broker, clientID, httpAddr, logDir string, printTemp bool) error {
	// Initialize thermocouple
	sensor, err := thermo.NewMAX6675(cfg.Sensor.PinSCK, cfg.Sensor.PinCS, cfg.Sensor.PinSO)
	if err != nil {
		return fmt.Errorf("init thermocouple: %w", err)
	}
	defer sensor.Close()

	// Print temperature mode
	if printTemp {
		c, err := sensor.ReadTemperature()
		if err != nil {
			return fmt.Errorf("read thermocouple: %w", err)
		}
		fmt.Printf("%.2f C\n", c)
		return nil
	}

	// Initialize heater output; Close drives it low.
	heater, err := gpio.NewRealSwitch(cfg.Heater.Pin)
	if err != nil {
		return fmt.Errorf("init heater: %w", err)
	}
	defer heater.Close()

	sig := &session.Signal{}
	if cfg.ButtonEnabled() {
		button, err := gpio.NewRealButton(cfg.Button.Pin, cfg.Button.Debounce, func() {
			log.Printf("button pressed")
			sig.Press()
		})
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		defer button.Close()
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(broker, clientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	prof := cfg.ProfileValue()
	sessCfg := cfg.SessionConfig()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:     sessCfg.TickPeriod.Milliseconds(),
		SafeStartC: sessCfg.SafeStartC,
		Profile:    prof.Name,
		Broker:     broker,
		HTTPAddr:   httpAddr,
		LogDir:     logDir,
	}, prof)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	reporter := mqtt.NewReporter(publisher, reporterDepth)
	defer reporter.Close()

	deps := session.Deps{
		Sensor:   sensor,
		Heater:   heater,
		Signal:   sig,
		Observer: session.Observers{tracker, reporter},
	}
	if logDir != "" {
		deps.OpenLog = openTickLog(logDir)
	}
	sess, err := session.New(sessCfg, prof, deps)
	if err != nil {
		return fmt.Errorf("init session: %w", err)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, sig)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: profile=%q segments=%d tick=%v broker=%s",
		prof.Name, len(prof.Segments), sessCfg.TickPeriod, broker)

	ticker := time.NewTicker(sessCfg.TickPeriod)
	defer ticker.Stop()
	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runController(sess, reporter, publisher, publisher, tracker, time.Now, ticker.C, refresh.C, sigCh)
}

// runController runs the session until a signal arrives, then stops it and
// publishes the shutdown event after the reporter has flushed the run's last
// events. The heater is off when it returns.
func runController(sess *session.Session, reporter *mqtt.Reporter, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, tick, refresh <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(ctx, tick)
	}()

	for {
		select {
		case err := <-done:
			// Run only returns on its own if something is badly wrong.
			if err != nil {
				return fmt.Errorf("session: %w", err)
			}
			return nil

		case <-refresh:
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			cancel()
			if err := <-done; err != nil {
				log.Printf("session stopped with error: %v", err)
			}
			if reporter != nil {
				reporter.Close()
			}

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil
		}
	}
}

// openTickLog returns a factory for per-run CSV logs in dir.
func openTickLog(dir string) session.OpenLogFunc {
	return func(start time.Time) (session.TickLog, error) {
		l, err := csvlog.Open(dir, start)
		if err != nil {
			return nil, err
		}
		log.Printf("logging run to %s", l.Path())
		return l, nil
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
