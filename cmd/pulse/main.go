// Command pulse reads a PPG sensor over a serial link, writes the filtered
// IR waveform to a text file and reports the heart rate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/publish"
	"github.com/banshee-data/pulse.report/internal/serialport"
	"github.com/banshee-data/pulse.report/internal/version"
)

var (
	port        = flag.String("port", "/dev/ttyUSB0", "Serial port to read (ignored with -dev or -replay)")
	configPath  = flag.String("config", "", "Tuning file (.json, .yaml or .toml); PULSE_* variables override it")
	outPath     = flag.String("out", "data.csv", "Output file for the filtered IR waveform")
	dbPath      = flag.String("db", "", "SQLite file for sessions and heart rates (disabled when empty)")
	devMode     = flag.Bool("dev", false, "Read from a simulated sensor instead of the serial port")
	devBPM      = flag.Float64("dev-bpm", 72, "Heart rate of the simulated sensor")
	replay      = flag.String("replay", "", "Replay a captured byte stream instead of reading the serial port")
	listen      = flag.String("listen", "", "Debug HTTP listen address, e.g. localhost:8080 (disabled when empty)")
	grpcListen  = flag.String("grpc-listen", "", "gRPC health listen address (disabled when empty)")
	natsURL     = flag.String("nats", "", "NATS server URL for heart-rate messages (disabled when empty)")
	natsSubject = flag.String("nats-subject", publish.DefaultSubject, "NATS subject for heart-rate messages")
	fsync       = flag.Bool("fsync", false, "fsync the output file after every sample")
	truncate    = flag.Bool("truncate", false, "Start a fresh output file instead of appending")
	logLevel    = flag.String("log-level", monitoring.InfoLevel, "Log level: debug, info, warn or error")
	listPorts   = flag.Bool("list-ports", false, "List serial ports and exit")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("pulse", version.String())
		return
	}
	if *listPorts {
		ports, err := serialport.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list serial ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	_, syncLogs := monitoring.UseZap(*logLevel)
	defer syncLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, optionsFromFlags())
	stop()
	syncLogs()
	os.Exit(code)
}

func optionsFromFlags() options {
	return options{
		Port:        *port,
		ConfigPath:  *configPath,
		OutPath:     *outPath,
		DBPath:      *dbPath,
		Dev:         *devMode,
		DevBPM:      *devBPM,
		ReplayPath:  *replay,
		Listen:      *listen,
		GRPCListen:  *grpcListen,
		NATSURL:     *natsURL,
		NATSSubject: *natsSubject,
		Fsync:       *fsync,
		Truncate:    *truncate,
	}
}
