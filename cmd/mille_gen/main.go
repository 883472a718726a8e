package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"mille-go/alignment"
	"mille-go/binlog"
	"mille-go/config"
	"mille-go/derivs"
	"mille-go/monitoring"
	"mille-go/web"
)

func main() {
	inPath := flag.String("in", "", "Trajectory CSV (- for stdin)")
	cfgPath := flag.String("config", "", "Optional alignment XML config")
	outPath := flag.String("out", "", "Output file (overrides config)")
	policyFlag := flag.String("policy", "", "Policy for points without usable derivatives: skip or abort (overrides config)")
	httpPort := flag.Int("http", 0, "Serve /ws and /stats on this port (0 disables)")
	verbose := flag.Bool("v", false, "Log every trajectory")
	flag.Parse()

	if *inPath == "" {
		fmt.Println("--in required")
		os.Exit(1)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Printf("load config failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *outPath != "" {
		cfg.OutputFile = *outPath
	}
	if *policyFlag != "" {
		p, err := alignment.ParsePolicy(*policyFlag)
		if err != nil {
			fmt.Printf("invalid policy: %v\n", err)
			os.Exit(1)
		}
		cfg.Policy = p
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		os.Exit(1)
	}

	in := io.Reader(os.Stdin)
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Printf("open input failed: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	var srv *web.Server
	if *httpPort > 0 {
		srv = web.NewServer()
		if _, err := srv.Listen(*httpPort, *cfgPath); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		go func() {
			if err := srv.Serve(); err != nil {
				monitoring.Logf("%v", err)
			}
		}()
	}

	start := time.Now()
	var total alignment.Summary
	var trajs, failed int
	err := binlog.WithFile(cfg.OutputFile, func(w *binlog.Writer) error {
		if srv != nil {
			srv.Attach(w)
		}
		calc := derivs.NewCalculator(cfg.Scheme)
		calc.MaxLayer = cfg.LayerLimit()
		emitter := alignment.NewEmitter(calc, w, cfg.Policy)
		if len(cfg.Sensors) > 0 {
			emitter.RequireSensors(cfg)
		}
		src := alignment.NewSource(in)
		for {
			id, traj, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			trajs++
			sum, err := emitter.Emit(traj)
			if err != nil {
				if !emitter.Pending() {
					// aborted trajectory or bad local data
					failed++
					monitoring.Logf("trajectory %s dropped: %v", id, err)
					continue
				}
				if sum, err = emitter.Retry(); err != nil {
					return fmt.Errorf("trajectory %s: %w", id, err)
				}
			}
			if *verbose {
				monitoring.Logf("trajectory %s: %d points, %d blocks, %d skipped", id, sum.Points, sum.Blocks, sum.Skipped)
			}
			total.Points += sum.Points
			total.Blocks += sum.Blocks
			total.Skipped += sum.Skipped
			total.Entries += sum.Entries
		}
	})

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Shutdown(ctx)
		cancel()
	}
	if err != nil {
		fmt.Printf("write %s failed: %v\n", cfg.OutputFile, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s: %d trajectories (%d dropped), %d points, %d blocks, %d skipped points, %d entries in %v\n",
		cfg.OutputFile, trajs, failed, total.Points, total.Blocks, total.Skipped, total.Entries, time.Since(start).Round(time.Millisecond))
}
