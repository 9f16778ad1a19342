// Command irrigation-controller drives two irrigation pump relays from daily
// watering schedules, with manual overrides over an authenticated web page.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/irrigation-controller/internal/admin"
	"github.com/sweeney/irrigation-controller/internal/auth"
	"github.com/sweeney/irrigation-controller/internal/clock"
	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/status"
	"github.com/sweeney/irrigation-controller/internal/web"
)

// adminQueueSize bounds the admin requests waiting for the loop.
const adminQueueSize = 8

func main() {
	cfg, err := config.Load(os.Args[1:], nil, os.Stderr)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config) error {
	start := time.Now()

	loc, err := clock.Location(cfg.Timezone, cfg.TZOffset)
	if err != nil {
		return fmt.Errorf("time zone: %w", err)
	}
	var src clock.Source = clock.NewSystem(loc)
	var ntpSrc *clock.NTP
	if cfg.NTPServer != "" {
		ntpSrc = clock.NewNTP(cfg.NTPServer, cfg.NTPInterval, cfg.NTPTimeout, loc)
		src = ntpSrc
	}

	ctrl, err := newController(start, cfg)
	if err != nil {
		return err
	}

	// Print state mode
	if cfg.PrintState {
		if ntpSrc != nil {
			if err := ntpSrc.Sync(); err != nil {
				return fmt.Errorf("ntp: %w", err)
			}
		}
		return printState(os.Stdout, ctrl, src)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if ntpSrc != nil {
		go ntpSrc.Run(ctx)
	}

	checker, err := auth.NewChecker(cfg.AdminUser, cfg.PasswordHash)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	// Initialize GPIO; lines start de-energized
	writer, err := gpio.NewRealWriter(cfg.GPIOChip, []gpio.Line{
		{Pump: logic.PumpGarden, Pin: cfg.PinGarden},
		{Pump: logic.PumpGreenhouse, Pin: cfg.PinGreenhouse},
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer writer.Close()

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus = mqtt.Discard{}
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, clientID())
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = p, p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(start, status.Config{
		CycleMs:     cfg.Cycle.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		NTPServer:   cfg.NTPServer,
		Timezone:    loc.String(),
	})
	tracker.Update(ctrl.Pumps(), time.Time{}, start)
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	if info := readNetworkInfo(); info != nil {
		tracker.SetNetwork(info)
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
	}

	queue := admin.NewQueue(adminQueueSize)

	// Start HTTP server; bind before the loop so a taken port fails startup
	if cfg.HTTPAddr != "" {
		ln, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		srv := web.New(cfg.HTTPAddr, tracker, queue, checker)
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Printf("http server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: cycle=%v heartbeat=%v broker=%q ntp=%q tz=%s garden=[%s] greenhouse=[%s]",
		cfg.Cycle, cfg.Heartbeat, cfg.Broker, cfg.NTPServer, loc, schedule(ctrl, logic.PumpGarden), schedule(ctrl, logic.PumpGreenhouse))

	ticker := time.NewTicker(cfg.Cycle)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       ctrl,
		writer:     writer,
		clock:      src,
		queue:      queue,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	return runLoop(l, ticker.C, sigCh)
}

// newController builds the two pumps and loads their configured schedules.
func newController(start time.Time, cfg *config.Config) (*logic.Controller, error) {
	ctrl := logic.NewController(start,
		logic.PumpConfig{ID: logic.PumpGarden, Name: "Garden"},
		logic.PumpConfig{ID: logic.PumpGreenhouse, Name: "Greenhouse"},
	)
	if err := ctrl.ReplaceSchedule(logic.PumpGarden, cfg.GardenSchedule); err != nil {
		return nil, fmt.Errorf("garden schedule: %w", err)
	}
	if err := ctrl.ReplaceSchedule(logic.PumpGreenhouse, cfg.GreenhouseSchedule); err != nil {
		return nil, fmt.Errorf("greenhouse schedule: %w", err)
	}
	return ctrl, nil
}

func schedule(ctrl *logic.Controller, id logic.PumpID) string {
	p, err := ctrl.Pump(id)
	if err != nil {
		return ""
	}
	return p.Schedule.String()
}

// printState evaluates one cycle without touching the relays.
func printState(w io.Writer, ctrl *logic.Controller, src clock.Source) error {
	now, err := src.Now()
	if err != nil {
		return fmt.Errorf("read clock: %w", err)
	}
	ctrl.Cycle(logic.TimeOfDayOf(now))
	fmt.Fprintf(w, "time: %s\n", now.Format("15:04"))
	for _, p := range ctrl.Pumps() {
		fmt.Fprintf(w, "%s: %s (%s)\n", p.ID, logic.StateOf(p.Output), p.Reason)
	}
	return nil
}

func clientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return "irrigation-controller-" + host
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
