package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"mille-go/binlog"
	"mille-go/web"
)

func main() {
	path := flag.String("in", binlog.DefaultFileName, "Millepede binary file")
	port := flag.Int("http", 8080, "HTTP port for /ws and /stats")
	rate := flag.Float64("rate", 100, "Records per second (0 for max speed)")
	linger := flag.Duration("linger", 10*time.Second, "Keep serving after the replay ends")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("Open %s failed: %v", *path, err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := web.NewServer()
	if _, err := srv.Listen(*port, ""); err != nil {
		log.Fatalf("%v", err)
	}
	go func() {
		if err := srv.Serve(); err != nil {
			log.Printf("%v", err)
		}
	}()

	log.Printf("Replaying %s at %.0f records/s...", *path, *rate)
	n, err := srv.Replay(ctx, binlog.NewReader(f), *rate)
	if err != nil {
		log.Printf("Replay stopped after %d records: %v", n, err)
	}

	select {
	case <-time.After(*linger):
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
