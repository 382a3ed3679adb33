// rwsbridge connects to a robot controller's web-service API, streams joint
// telemetry, and prints the freshest sample at a human-readable rate. It is
// the reference host for the connection package: the core never retries on
// its own, so reconnection policy (exponential backoff) lives here.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/auth"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/config"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/connection"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/telemetry"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport"
)

const statusPrintInterval = 1 * time.Second

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: rwsbridge <config.yaml>")
		os.Exit(1)
	}

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}

	endpoint := auth.Endpoint{
		Host: cfg.Controller.Host,
		Port: cfg.Controller.Port,
		Task: cfg.Controller.Task,
	}
	credentials := auth.Credentials{
		Username: cfg.Controller.Username,
		Password: cfg.Controller.Password,
	}
	opts := connection.Options{
		PollingInterval: cfg.Stream.PollingInterval(),
		PreferSocket:    cfg.Stream.PreferSocketOrDefault(),
		RequestTimeout:  cfg.Stream.RequestTimeout(),
		ResourcePaths:   cfg.Stream.ResourcePaths,
		SocketEndpoints: cfg.Stream.SocketEndpoints,
		PollingPath:     cfg.Stream.PollingPath,
		Priority:        cfg.Stream.Priority,
	}

	// Reconnection policy: every disconnect reported by the core schedules a
	// restart after the next backoff interval; a successful connection resets
	// the interval
	backoffParams := backoff.NewExponentialBackOff()
	backoffParams.MaxElapsedTime = 0 // keep trying until killed
	backoffParams.MaxInterval = 30 * time.Second

	disconnected := make(chan string, 1)

	var client *connection.Client
	client = connection.New(log.GetComponentLogger("Connection"), connection.Callbacks{
		OnConnected: func(mode transport.Mode) {
			log.Infof("Connected over %s transport", mode)
			backoffParams.Reset()
		},
		OnDisconnected: func(reason string) {
			select {
			case disconnected <- reason:
			default:
			}
		},
		OnError: func(message string) {
			log.Errorf("connection error: %s", message)
		},
	})

	if err := client.Start(endpoint, credentials, opts); err != nil {
		log.Errorf("failed to start: %s", err)
		os.Exit(1)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	statusTicker := time.NewTicker(statusPrintInterval)
	defer statusTicker.Stop()

	for {
		select {
		case <-signals:
			log.Infof("Shutdown requested")
			client.Stop()
			return

		case reason := <-disconnected:
			wait := backoffParams.NextBackOff()
			log.Infof("Disconnected (%s), restarting in %s", reason, wait)

			select {
			case <-time.After(wait):
				if err := client.Start(endpoint, credentials, opts); err != nil {
					log.Errorf("restart failed: %s", err)
				}
			case <-signals:
				log.Infof("Shutdown requested")
				client.Stop()
				return
			}

		case <-statusTicker.C:
			printStatus(client)
		}
	}
}

func printStatus(client *connection.Client) {
	status := client.Status()
	if sample, ok := client.LatestSample(); ok {
		fmt.Printf("[%s/%s %.1fHz] joints: %s\n",
			status.State, status.Mode, status.Counters.FrequencyHz, formatJoints(sample))
	}
}

func formatJoints(sample telemetry.Sample) string {
	out := ""
	for i, angle := range sample.JointAngles {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%7.2f", angle)
	}
	return out
}

func createLogger(cfg *config.Config) (*logger.Logger, error) {
	options := &logger.Config{
		FilePath: cfg.Log.FilePath,
	}
	if cfg.Log.Console {
		options.ConsoleWriters = []io.Writer{os.Stdout}
	}
	return logger.New(options)
}
