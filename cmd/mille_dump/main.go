package main

import (
	"flag"
	"fmt"
	"os"

	"mille-go/binlog"
	"mille-go/config"
)

func main() {
	path := flag.String("in", binlog.DefaultFileName, "Millepede binary file")
	cfgPath := flag.String("config", "", "Optional alignment XML config for the label scheme")
	maxRecords := flag.Int("n", 10, "Records to print in full (-1 for all)")
	countsOnly := flag.Bool("counts", false, "Only print the label histogram")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Printf("load config failed: %v\n", err)
			os.Exit(1)
		}
	}

	parser := binlog.NewParser(*path)
	if err := parser.Parse(); err != nil {
		fmt.Printf("parse %s failed: %v\n", *path, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d records\n", *path, len(parser.Records))

	if !*countsOnly {
		for i, rec := range parser.Records {
			if *maxRecords >= 0 && i >= *maxRecords {
				fmt.Printf("... %d more\n", len(parser.Records)-i)
				break
			}
			blocks, err := rec.Blocks()
			if err != nil {
				fmt.Printf("record %d: %v\n", i, err)
				os.Exit(1)
			}
			fmt.Printf("record %d: %d entries, %d blocks\n", i, len(rec.Floats), len(blocks))
			for j, b := range blocks {
				fmt.Printf("  block %d: value=%g error=%g locals=%d\n", j, b.Value, b.Error, len(b.LocalIndices))
				for k, l := range b.GlobalLabels {
					fmt.Printf("    %6d %-14s %g\n", l, describe(cfg, l), b.GlobalDerivs[k])
				}
			}
		}
	}

	counts, err := parser.LabelCounts()
	if err != nil {
		fmt.Printf("label counts failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("label histogram:")
	for _, c := range counts {
		fmt.Printf("  %6d %-14s %d\n", c.Label, describe(cfg, c.Label), c.Count)
	}
}

// describe decodes a label and names its sensor when the config has one.
func describe(cfg *config.Config, l int32) string {
	p, err := cfg.Scheme.Decode(int(l))
	if err != nil {
		return "?"
	}
	if s, ok := cfg.SensorAt(p.Half, p.Layer); ok {
		return p.String() + " " + s.Name
	}
	return p.String()
}
