package cluster

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	"github.com/mgmonteleone/AtlasFleetReport/internal/namespace"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/utils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/snapshot"
)

// NamespaceSource lists databases on a host and fetches their per-database series.
type NamespaceSource interface {
	ListDatabases(ctx context.Context, host controlplane.Host) ([]string, error)
	DatabaseMeasurements(ctx context.Context, host controlplane.Host, db string, g measurement.Granularity, p measurement.Period) ([]measurement.Result, error)
}

// Options selects which primary metrics to collect.
type Options struct {
	Host        bool
	Disk        bool
	Granularity measurement.Granularity
	Period      measurement.Period
}

// AccumulateNamespaceCounts folds the per-database series of every user database on the primary.
// Without a primary the counts are zero and no error is returned. A failing database does not stop
// the others.
func (d Descriptor) AccumulateNamespaceCounts(
	ctx context.Context,
	src NamespaceSource,
	hosts []controlplane.Host,
	g measurement.Granularity,
	p measurement.Period,
) (namespace.Counts, error) {
	var counts namespace.Counts

	primary, ok := d.ResolvePrimary(hosts)
	if !ok {
		log.Printf("[INFO] cluster %s: no primary, namespace counts left at zero", d.Name)
		return counts, nil
	}

	dbs, err := src.ListDatabases(ctx, primary)
	if err != nil {
		return counts, fmt.Errorf("ListDatabases: %w", err)
	}

	var errs []error

	for _, db := range lo.Reject(dbs, func(db string, _ int) bool { return namespace.IsSystemDatabase(db) }) {
		if err := utils.CtxDone(ctx); err != nil {
			return counts, errors.Join(append(errs, err)...)
		}

		results, err := src.DatabaseMeasurements(ctx, primary, db, g, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("DatabaseMeasurements %s: %w", db, err))
			continue
		}

		counts.Fold(results)
	}

	log.Printf("[INFO] cluster %s: %d user databases, %s of data",
		d.Name, counts.Databases, humanize.Bytes(uint64(max(counts.DataSize, 0))))

	return counts, errors.Join(errs...)
}

// CollectPrimaryMetrics populates a fresh snapshot of the primary. It returns nil, nil when the
// cluster has no primary. On partial failure the snapshot is returned together with the error.
func (d Descriptor) CollectPrimaryMetrics(
	ctx context.Context,
	src snapshot.MeasurementSource,
	hosts []controlplane.Host,
	opts Options,
) (*snapshot.Snapshot, error) {
	primary, ok := d.ResolvePrimary(hosts)
	if !ok {
		log.Printf("[INFO] cluster %s: no primary, skipping metrics", d.Name)
		return nil, nil
	}

	snap := snapshot.New(primary)

	var errs []error

	if opts.Host {
		if err := snap.PopulateHost(ctx, src, opts.Granularity, opts.Period); err != nil {
			errs = append(errs, fmt.Errorf("PopulateHost: %w", err))
		}
	}

	if opts.Disk {
		if err := snap.PopulateDisk(ctx, src, opts.Granularity, opts.Period); err != nil {
			errs = append(errs, fmt.Errorf("PopulateDisk: %w", err))
		}
	}

	return snap, errors.Join(errs...)
}
