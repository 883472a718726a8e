package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"mille-go/binlog"
)

const maxReported = 10

func main() {
	file1 := flag.String("1", "", "Reference Millepede file")
	file2 := flag.String("2", "", "Candidate Millepede file")
	tol := flag.Float64("tol", 1e-6, "Absolute or relative tolerance on values")
	flag.Parse()

	if *file1 == "" || *file2 == "" {
		log.Fatal("Usage: mille_verify -1 <reference> -2 <candidate> [-tol 1e-6]")
	}

	p1 := binlog.NewParser(*file1)
	if err := p1.Parse(); err != nil {
		log.Fatalf("Error reading %s: %v", *file1, err)
	}
	p2 := binlog.NewParser(*file2)
	if err := p2.Parse(); err != nil {
		log.Fatalf("Error reading %s: %v", *file2, err)
	}

	fmt.Printf("Reference records: %d\n", len(p1.Records))
	fmt.Printf("Candidate records: %d\n", len(p2.Records))

	n := min(len(p1.Records), len(p2.Records))
	mismatches := 0
	for i := 0; i < n; i++ {
		if m := binlog.CompareRecords(p1.Records[i], p2.Records[i], *tol); m != nil {
			fmt.Printf("Mismatch at record %d: %v\n", i, m)
			mismatches++
			if mismatches >= maxReported {
				fmt.Println("Too many mismatches, stopping.")
				break
			}
		}
	}

	if len(p1.Records) != len(p2.Records) {
		fmt.Printf("Count mismatch: %d vs %d\n", len(p1.Records), len(p2.Records))
		mismatches++
	}

	if mismatches == 0 {
		fmt.Println("SUCCESS: All records match.")
	} else {
		fmt.Println("FAILURE: Mismatches found.")
		os.Exit(1)
	}
}
