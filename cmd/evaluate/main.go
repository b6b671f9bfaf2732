// Command evaluate scores an image file against a running fitness server.
//
//	evaluate -addr http://localhost:5000 -wait 30s candidate.png
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "golang.org/x/image/webp"
)

func main() {
	addr := flag.String("addr", "http://localhost:5000", "fitness server base URL")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for the server to become healthy")
	timeout := flag.Duration("timeout", time.Minute, "timeout of the evaluate request")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <image>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	img, err := loadCandidate(flag.Arg(0))
	if err != nil {
		slog.Error("Failed to load candidate", "err", err)
		os.Exit(1)
	}

	client := &Client{BaseURL: *addr, HTTPClient: &http.Client{Timeout: *timeout}}
	ctx := context.Background()

	if err := client.WaitReady(ctx, *wait); err != nil {
		slog.Error("Server not ready", "addr", *addr, "err", err)
		os.Exit(1)
	}

	fitness, err := client.Evaluate(ctx, img)
	if err != nil {
		slog.Error("Evaluation failed", "err", err)
		os.Exit(1)
	}
	fmt.Printf("%.6f\n", fitness)
}
