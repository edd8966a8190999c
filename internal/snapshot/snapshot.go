package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/utils"
)

// MeasurementSource fetches host and disk series for one host.
type MeasurementSource interface {
	Measurement(ctx context.Context, host controlplane.Host, id measurement.ID, g measurement.Granularity, p measurement.Period) (*measurement.Result, error)
	DiskMeasurements(ctx context.Context, host controlplane.Host, g measurement.Granularity, p measurement.Period) ([]measurement.Result, error)
}

// slot order: host catalog, then disk catalog
var (
	slotOrder = append(measurement.HostCatalog(), measurement.DiskCatalog()...)
	slotIndex = func() map[measurement.ID]int {
		idx := make(map[measurement.ID]int, len(slotOrder))
		for i, id := range slotOrder {
			idx[id] = i
		}
		return idx
	}()
)

// Reading is one stored series reduced to its report scalar.
type Reading struct {
	ID    measurement.ID
	Value float64
}

// Snapshot holds at most one result per known identifier for one host.
type Snapshot struct {
	host  controlplane.Host
	slots []*measurement.Result
}

// New creates an empty snapshot for host.
func New(host controlplane.Host) *Snapshot {
	return &Snapshot{
		host:  host,
		slots: make([]*measurement.Result, len(slotOrder)),
	}
}

// Host returns the host the snapshot belongs to.
func (s *Snapshot) Host() controlplane.Host {
	return s.host
}

// Store classifies res into its slot. Unknown identifiers are ignored and still count as stored.
// Returns false only if classification itself failed.
func (s *Snapshot) Store(res measurement.Result) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] snapshot: storing %s: %v", res.ID, r)
			ok = false
		}
	}()

	i, known := slotIndex[res.ID]
	if !known {
		return true
	}

	if s.slots[i] != nil {
		log.Printf("[WARN] snapshot %s: overwriting unread %s", s.host.Addr(), res.ID)
	}

	s.slots[i] = &res

	return true
}

// Get returns the stored result for id.
func (s *Snapshot) Get(id measurement.ID) (measurement.Result, bool) {
	i, known := slotIndex[id]
	if !known || s.slots[i] == nil {
		return measurement.Result{}, false
	}

	return *s.slots[i], true
}

// Len returns the number of filled slots.
func (s *Snapshot) Len() int {
	n := 0
	for _, r := range s.slots {
		if r != nil {
			n++
		}
	}

	return n
}

// Readings returns filled slots in catalog order.
func (s *Snapshot) Readings() []Reading {
	readings := make([]Reading, 0, len(s.slots))
	for i, r := range s.slots {
		if r == nil {
			continue
		}
		readings = append(readings, Reading{ID: slotOrder[i], Value: r.Value()})
	}

	return readings
}

// PopulateHost requests every host-catalog series, one call each. A failed call does not stop the
// remaining ones; all failures are returned joined.
func (s *Snapshot) PopulateHost(ctx context.Context, src MeasurementSource, g measurement.Granularity, p measurement.Period) error {
	var errs []error

	for _, id := range measurement.HostCatalog() {
		if err := utils.CtxDone(ctx); err != nil {
			return errors.Join(append(errs, err)...)
		}

		res, err := src.Measurement(ctx, s.host, id, g, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("Measurement %s: %w", id, err))
			continue
		}
		if res == nil {
			log.Printf("[INFO] snapshot %s: no data for %s", s.host.Addr(), id)
			continue
		}

		s.Store(*res)
	}

	return errors.Join(errs...)
}

// PopulateDisk requests the disk-partition batch in one call and stores every result.
func (s *Snapshot) PopulateDisk(ctx context.Context, src MeasurementSource, g measurement.Granularity, p measurement.Period) error {
	if err := utils.CtxDone(ctx); err != nil {
		return err
	}

	results, err := src.DiskMeasurements(ctx, s.host, g, p)
	if err != nil {
		return fmt.Errorf("DiskMeasurements: %w", err)
	}

	for _, res := range results {
		s.Store(res)
	}

	return nil
}
