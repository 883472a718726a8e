package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mille-go/binlog"
	"mille-go/monitoring"
)

// Replay reads records from rd and publishes running totals as if they were
// being written now, at rate records per second (0 for as fast as possible).
// It returns the number of records published.
func (s *Server) Replay(ctx context.Context, rd *binlog.Reader, rate float64) (int, error) {
	var st binlog.FlushStats
	start := time.Now()
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st.Records, fmt.Errorf("record %d: %w", st.Records, err)
		}
		blocks, err := rec.Blocks()
		if err != nil {
			return st.Records, fmt.Errorf("record %d: %w", st.Records, err)
		}

		if rate > 0 && st.Records > 0 {
			target := time.Duration(float64(st.Records) / rate * float64(time.Second))
			if wait := target - time.Since(start); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return st.Records, ctx.Err()
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return st.Records, err
		}

		n := len(rec.Floats)
		st.Records++
		st.Blocks += len(blocks)
		st.Entries += n
		st.Bytes += int64(4 + 8*n)
		st.LastBlocks = len(blocks)
		st.LastEntries = n
		s.Publish(st)
	}
	monitoring.Logf("replay done: %d records", st.Records)
	return st.Records, nil
}
