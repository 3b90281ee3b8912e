// Command hx711-sensor reads an HX711 load-cell converter over GPIO and
// publishes readings and settled load changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sweeney/hx711-sensor/internal/config"
	"github.com/sweeney/hx711-sensor/internal/gpio"
	"github.com/sweeney/hx711-sensor/internal/hx711"
	"github.com/sweeney/hx711-sensor/internal/logic"
	"github.com/sweeney/hx711-sensor/internal/mqtt"
	"github.com/sweeney/hx711-sensor/internal/status"
	"github.com/sweeney/hx711-sensor/internal/web"
)

const defaultConfigPath = "/etc/hx711-sensor.yaml"

func main() {
	cfg, printState, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("config: %v", err)
	}

	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags loads the config file named by --config and layers any flags
// given on the command line over it.
func parseFlags(args []string) (*config.Config, bool, error) {
	def := config.Default()
	fs := flag.NewFlagSet("hx711-sensor", flag.ContinueOnError)

	path := fs.String("config", defaultConfigPath, "YAML config file (missing file uses defaults)")
	chip := fs.String("chip", def.GPIO.Chip, "GPIO chip name")
	pinClock := fs.Int("pin-clock", def.GPIO.PinClock, "line offset for PD_SCK")
	pinData := fs.Int("pin-data", def.GPIO.PinData, "line offset for DOUT")
	gain := fs.Int("gain", def.Converter.Gain, "amplifier gain (128, 64 or 32)")
	tareTimeout := fs.Duration("tare-timeout", def.Converter.TareTimeout, "abort if tare takes longer (0 waits forever)")
	report := fs.Duration("report", def.Detector.Report, "reading report interval")
	settle := fs.Duration("settle", def.Detector.Settle, "time a new load must hold before it is reported")
	threshold := fs.Int64("threshold", int64(def.Detector.Threshold), "counts a reading may wander and still be the same load")
	heartbeat := fs.Duration("heartbeat", def.Detector.Heartbeat, "heartbeat interval (0 to disable)")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address")
	clientID := fs.String("client-id", def.MQTT.ClientID, "MQTT client id")
	httpAddr := fs.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	printState := fs.Bool("print-state", false, "Tare, print one reading and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, false, err
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.GPIO.Chip = *chip
		case "pin-clock":
			cfg.GPIO.PinClock = *pinClock
		case "pin-data":
			cfg.GPIO.PinData = *pinData
		case "gain":
			cfg.Converter.Gain = *gain
		case "tare-timeout":
			cfg.Converter.TareTimeout = *tareTimeout
		case "report":
			cfg.Detector.Report = *report
		case "settle":
			cfg.Detector.Settle = *settle
		case "threshold":
			if *threshold < math.MinInt32 || *threshold > math.MaxInt32 {
				flagErr = fmt.Errorf("--threshold %d out of range", *threshold)
				return
			}
			cfg.Detector.Threshold = int32(*threshold)
		case "heartbeat":
			cfg.Detector.Heartbeat = *heartbeat
		case "broker":
			cfg.MQTT.Broker = *broker
		case "client-id":
			cfg.MQTT.ClientID = *clientID
		case "http":
			cfg.HTTP.Addr = *httpAddr
		}
	})
	if flagErr != nil {
		return nil, false, flagErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, *printState, nil
}

func run(cfg *config.Config, printState bool) error {
	tracker := status.NewTracker(time.Now(), status.Config{
		ReportMs:    cfg.Detector.Report.Milliseconds(),
		SettleMs:    cfg.Detector.Settle.Milliseconds(),
		Threshold:   cfg.Detector.Threshold,
		HeartbeatMs: cfg.Detector.Heartbeat.Milliseconds(),
		Gain:        cfg.Converter.Gain,
		PinClock:    cfg.GPIO.PinClock,
		PinData:     cfg.GPIO.PinData,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})

	// The edge handler runs on the gpiocdev event goroutine and may fire
	// before the driver exists.
	var shared atomic.Pointer[hx711.Shared]
	onEdge := func() {
		s := shared.Load()
		if s == nil {
			return
		}
		action, err := s.HandleEdge()
		tracker.RecordEdge(action, err)
		if err != nil {
			log.Printf("hx711 read error: %v", err)
		}
	}
	if printState {
		onEdge = nil
	}

	lines, err := gpio.NewRealLines(cfg.GPIO.Chip, cfg.GPIO.PinClock, cfg.GPIO.PinData, onEdge)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	driver, err := hx711.New(lines.Clock(), lines.Data(), hx711.BusyDelay{}, hx711.Gain(cfg.Converter.Gain))
	if err != nil {
		return fmt.Errorf("init hx711: %w", err)
	}
	s := hx711.NewShared(driver, nil)

	if err := tareWithin(s, cfg.Converter.TareTimeout); err != nil {
		return err
	}
	tracker.SetTare(s.Offset())
	log.Printf("tared: offset=%d gain=%d", s.Offset(), cfg.Converter.Gain)

	if printState {
		last, err := readOnce(s, time.Second)
		if err != nil {
			return err
		}
		fmt.Printf("offset: %d, last: %d\n", s.Offset(), last)
		return nil
	}

	// From here on edges drive the converter.
	shared.Store(s)

	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

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

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, s)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: report=%v settle=%v threshold=%d broker=%s heartbeat=%v",
		cfg.Detector.Report, cfg.Detector.Settle, cfg.Detector.Threshold, cfg.MQTT.Broker, cfg.Detector.Heartbeat)

	ticker := time.NewTicker(cfg.Detector.Report)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(s, publisher, publisher, tracker, cfg.Detector.Settle, cfg.Detector.Threshold, cfg.Detector.Heartbeat, time.Now, ticker.C, sigCh)
}

// tareWithin tares s, aborting the process if the converter has not become
// ready within timeout. A zero timeout waits forever.
func tareWithin(s *hx711.Shared, timeout time.Duration) error {
	if timeout > 0 {
		watchdog := time.AfterFunc(timeout, func() {
			log.Fatalf("tare: converter not ready after %v, check wiring", timeout)
		})
		defer watchdog.Stop()
	}
	return s.Tare()
}

// readOnce polls s until one conversion has been read.
func readOnce(s *hx711.Shared, timeout time.Duration) (int32, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		action, err := s.HandleEdge()
		if err != nil {
			return 0, fmt.Errorf("read hx711: %w", err)
		}
		if action == logic.ActionRead {
			return s.Last(), nil
		}
		time.Sleep(time.Millisecond)
	}
	return 0, fmt.Errorf("read hx711: no conversion within %v", timeout)
}

// loadReader is the report loop's view of the converter.
type loadReader interface {
	Last() int32
	Offset() int32
}

func runLoop(reader loadReader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, settle time.Duration, threshold int32, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(settle, threshold, startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
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

		case <-tick:
			t := now()
			last := reader.Last()

			err := publisher.PublishReading(mqtt.Reading{
				Timestamp: t,
				Value:     last,
				Offset:    reader.Offset(),
			})
			if err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
				log.Printf("publish reading error: %v", err)
			}

			events := detector.Process(logic.Input{
				Value: last,
				Time:  t,
			})

			for _, event := range events {
				log.Printf("event: %s (value=%d previous=%d)", event.Type, event.Value, event.Previous)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if tracker != nil {
				tracker.Update(last, detector.Stable(), detector.IsBaselined(), detector.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if !detector.IsBaselined() {
				continue
			}

			if hbData := detector.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v stable=%d readings=%d changes=%d",
					hbData.Uptime, hbData.Stable, hbData.Counts.Readings, hbData.Counts.Changes)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
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
