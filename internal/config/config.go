// Package config assembles the daemon configuration from command-line flags
// and environment variables, and validates the result.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/sweeney/irrigation-controller/internal/auth"
	"github.com/sweeney/irrigation-controller/internal/gpio"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Default watering windows, matching the factory schedules of the controller.
const (
	DefaultGardenSchedule     = "06:10-06:40,12:10-12:45,17:15-17:40"
	DefaultGreenhouseSchedule = "06:00-06:10,10:20-10:30,14:10-14:20,18:05-18:15"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "IRRIGATION_"

// Config is the complete daemon configuration.
type Config struct {
	Cycle     time.Duration `validate:"gt=0"`
	Heartbeat time.Duration `validate:"gte=0"`
	Broker    string        `validate:"omitempty,uri"`
	HTTPAddr  string

	PinGarden     int `validate:"gte=0,lte=27,nefield=PinGreenhouse"`
	PinGreenhouse int `validate:"gte=0,lte=27"`

	NTPServer   string // empty = trust the system clock
	NTPInterval time.Duration `validate:"gt=0"`
	NTPTimeout  time.Duration `validate:"gt=0"`
	Timezone    string
	TZOffset    time.Duration `validate:"gte=-14h,lte=14h"`

	GardenSchedule     []logic.RawWindow
	GreenhouseSchedule []logic.RawWindow

	PrintState bool

	Env
	// PasswordHash is the bcrypt hash checked by the admin interface.
	PasswordHash []byte `validate:"required"`
}

// Env holds settings that come from the environment rather than flags.
type Env struct {
	AdminUser         string `env:"ADMIN_USER" envDefault:"admin" validate:"required"`
	AdminPassword     string `env:"ADMIN_PASSWORD"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	GPIOChip          string `env:"GPIO_CHIP" validate:"required"`
}

// ErrNoPassword is returned when neither password variable is set.
var ErrNoPassword = errors.New("config: " + EnvPrefix + "ADMIN_PASSWORD or " + EnvPrefix + "ADMIN_PASSWORD_HASH must be set")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses args (without the program name) and the given environment.
// A nil environ reads the process environment.
func Load(args []string, environ map[string]string, stderr io.Writer) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("irrigation-controller", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&cfg.Cycle, "cycle", time.Second, "Control loop interval")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.StringVar(&cfg.Broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.HTTPAddr, "http", ":80", "HTTP listen address (empty to disable)")
	fs.IntVar(&cfg.PinGarden, "pin-garden", gpio.DefaultPinGarden, "BCM pin number for the garden pump relay")
	fs.IntVar(&cfg.PinGreenhouse, "pin-greenhouse", gpio.DefaultPinGreenhouse, "BCM pin number for the greenhouse pump relay")
	fs.StringVar(&cfg.NTPServer, "ntp-server", "pool.ntp.org", "NTP server (empty to trust the system clock)")
	fs.DurationVar(&cfg.NTPInterval, "ntp-interval", time.Minute, "NTP refresh interval")
	fs.DurationVar(&cfg.NTPTimeout, "ntp-timeout", 2*time.Second, "NTP query timeout")
	fs.StringVar(&cfg.Timezone, "tz", "", "IANA time zone for schedules (overrides -tz-offset)")
	fs.DurationVar(&cfg.TZOffset, "tz-offset", -3*time.Hour, "Fixed UTC offset for schedules")
	garden := fs.String("garden-schedule", DefaultGardenSchedule, "Garden watering windows, HH:MM-HH:MM separated by commas")
	greenhouse := fs.String("greenhouse-schedule", DefaultGreenhouseSchedule, "Greenhouse watering windows, HH:MM-HH:MM separated by commas")
	fs.BoolVar(&cfg.PrintState, "print-state", false, "Print the evaluated pump state and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.GardenSchedule, err = logic.ParseWindows(*garden); err != nil {
		return nil, fmt.Errorf("-garden-schedule: %w", err)
	}
	if cfg.GreenhouseSchedule, err = logic.ParseWindows(*greenhouse); err != nil {
		return nil, fmt.Errorf("-greenhouse-schedule: %w", err)
	}

	if err := loadEnv(&cfg.Env, environ); err != nil {
		return nil, err
	}
	if cfg.PasswordHash, err = passwordHash(cfg.Env); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return cfg, nil
}

func loadEnv(e *Env, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(e, opts); err != nil {
		var agg env.AggregateError
		if errors.As(err, &agg) && len(agg.Errors) > 0 {
			return fmt.Errorf("config: %w", agg.Errors[0])
		}
		return fmt.Errorf("config: %w", err)
	}
	if e.GPIOChip == "" {
		e.GPIOChip = gpio.DefaultChip
	}
	return nil
}

// passwordHash prefers a precomputed hash and otherwise hashes the plain
// password.
func passwordHash(e Env) ([]byte, error) {
	switch {
	case e.AdminPasswordHash != "":
		return []byte(e.AdminPasswordHash), nil
	case e.AdminPassword != "":
		hash, err := auth.HashPassword(e.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("config: hash admin password: %w", err)
		}
		return hash, nil
	default:
		return nil, ErrNoPassword
	}
}

// describe turns validator errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}
