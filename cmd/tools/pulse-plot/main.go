// Command pulse-plot renders a pulse output file and summarises the heart
// rates stored for a session.
//
// Usage:
//
//	go run ./cmd/tools/pulse-plot -in data.csv -out data.png
//	go run ./cmd/tools/pulse-plot -db pulse.db [-session ID] [-chart hr.html]
//	go run ./cmd/tools/pulse-plot -live http://localhost:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/ppg"
)

func main() {
	in := flag.String("in", "", "Waveform file written by pulse")
	out := flag.String("out", "waveform.png", "PNG to write the waveform plot to")
	rate := flag.Float64("rate", ppg.DefaultSampleRateHz, "Sample rate of the waveform in Hz")
	threshold := flag.Float64("threshold", ppg.DefaultPeakThreshold, "Peak threshold to draw (0 to hide)")
	dbPath := flag.String("db", "", "pulse database to summarise")
	session := flag.String("session", "", "Session ID (default: the most recent)")
	chart := flag.String("chart", "", "HTML file to write the heart-rate chart to")
	live := flag.String("live", "", "Base URL of a running pulse debug server")
	flag.Parse()

	if *in == "" && *dbPath == "" && *live == "" {
		log.Fatal("Error: one of -in, -db or -live is required")
	}

	if *in != "" {
		n, err := plotFile(*in, *out, *rate, *threshold)
		if err != nil {
			log.Fatalf("plot failed: %v", err)
		}
		log.Printf("plotted %d samples to %s", n, *out)
	}

	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()

		s, summary, err := summarizeSession(store, *session, *chart)
		if err != nil {
			log.Fatalf("summary failed: %v", err)
		}
		fmt.Printf("session %s (%s, %s): %s\n", s.ID, s.Source, sessionState(s), summary)
	}

	if *live != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		status, err := fetchStatus(ctx, http.DefaultClient, *live)
		if err != nil {
			log.Fatalf("live status failed: %v", err)
		}
		fmt.Println(formatStatus(status))
	}
}
