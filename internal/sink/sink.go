// Package sink delivers report records to their destinations.
package sink

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"

	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
)

// Sink receives records one by one.
type Sink interface {
	Write(ctx context.Context, rec report.Record) error
	Close(ctx context.Context) error
}

// Drain writes every record of seq to s and always closes s. It stops at the first fault of the
// sequence or of the sink and returns it joined with any close fault.
func Drain(ctx context.Context, seq iter.Seq2[report.Record, error], s Sink) (int, error) {
	var (
		n   int
		err error
	)

	for rec, recErr := range seq {
		if recErr != nil {
			err = fmt.Errorf("records: %w", recErr)
			break
		}

		if werr := s.Write(ctx, rec); werr != nil {
			err = fmt.Errorf("Write: %w", werr)
			break
		}

		n++
	}

	if cerr := s.Close(ctx); cerr != nil {
		err = errors.Join(err, fmt.Errorf("Close: %w", cerr))
	}

	if err != nil {
		log.Printf("[ERROR] sink: stopped after %d records: %s", n, err)
	}

	return n, err
}

// Multi fans every record out to several sinks. A failing sink does not stop the others.
type Multi []Sink

// Write implements Sink.
func (m Multi) Write(ctx context.Context, rec report.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Close implements Sink.
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
