package main

import (
	"errors"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/irrigation-controller/internal/admin"
	"github.com/sweeney/irrigation-controller/internal/clock"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/status"
)

// loop is the control loop state. Only runLoop's goroutine touches ctrl.
type loop struct {
	ctrl       *logic.Controller
	writer     gpio.Writer
	clock      clock.Source
	queue      *admin.Queue
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time

	clockDown bool
}

// runLoop runs one control cycle per tick until a signal arrives.
func runLoop(l *loop, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.shutdown(s)
			return nil

		case <-tick:
			l.cycle()
		}
	}
}

func (l *loop) cycle() {
	t := l.now()

	local, err := l.clock.Now()
	var outputs []logic.Output
	if err != nil {
		if !l.clockDown {
			log.Printf("clock unavailable, holding outputs: %v", err)
			l.clockDown = true
		}
		local = time.Time{}
		outputs = l.ctrl.Hold()
	} else {
		if l.clockDown {
			log.Printf("clock available at %s, resuming schedules", local.Format("15:04"))
			l.clockDown = false
		}
		outputs = l.ctrl.Cycle(logic.TimeOfDayOf(local))
	}

	for _, o := range outputs {
		if err := l.writer.Write(o.Pump, o.On); err != nil {
			log.Printf("gpio write error: pump=%s: %v", o.Pump, err)
		}
	}

	for _, event := range logic.Events(outputs, local) {
		log.Printf("event: %s %s (%s)", event.Pump, event.Type, event.Reason)
		if err := l.publisher.Publish(event); err != nil {
			// Don't stop the loop on publish failure
			log.Printf("publish error: %v", err)
		}
	}

	req, err := l.queue.Service(l.ctrl)
	if req != nil {
		if err != nil {
			log.Printf("admin: rejected %s: %v", req, err)
		} else {
			log.Printf("admin: applied %s", req)
		}
	}

	l.tracker.Update(l.ctrl.Pumps(), local, t)
	l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())

	if hb := l.ctrl.CheckHeartbeat(t, l.heartbeat); hb != nil {
		l.publishHeartbeat(hb)
	}
}

func (l *loop) publishHeartbeat(hb *logic.HeartbeatData) {
	g, gh := hb.Counts[logic.PumpGarden], hb.Counts[logic.PumpGreenhouse]
	log.Printf("heartbeat: uptime=%v garden_on=%d garden_off=%d greenhouse_on=%d greenhouse_off=%d",
		hb.Uptime.Truncate(time.Second), g.On, g.Off, gh.On, gh.Off)

	// Refresh network info for heartbeat
	if info := readNetworkInfo(); info != nil {
		l.tracker.SetNetwork(info)
	}
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// shutdown publishes SHUTDOWN and de-energizes every relay.
func (l *loop) shutdown(s os.Signal) {
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}

	var errs []error
	for _, p := range l.ctrl.Pumps() {
		if err := l.writer.Write(p.ID, false); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("gpio: failed to switch pumps off: %v", err)
	}
}
