package fleet

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mgmonteleone/AtlasFleetReport/internal/cluster"
	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/utils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
)

// Aggregator walks the fleet and turns every cluster into one report record.
type Aggregator struct {
	cp          controlplane.ControlPlane
	orgID       string
	projectIDs  []string
	region      string
	concurrency int
	curTime     utils.Provider[time.Time]

	stats *Stats
}

// Config - Aggregator config
type Config struct {
	ControlPlane controlplane.ControlPlane
	// OrgID scopes the run to every project of the organization when ProjectIDs is empty
	OrgID      string
	ProjectIDs []string
	// Region is the replication region node counts are read from
	Region string
	// Concurrency bounds the clusters built in parallel within one project. Values below 2 build sequentially
	Concurrency int

	CurTime utils.Provider[time.Time]
}

// Params are the run parameters of one report pass.
type Params struct {
	Granularity measurement.Granularity
	Period      measurement.Period

	IncludeHost      bool
	IncludeNamespace bool
	IncludeDisk      bool

	// ClusterName limits the run to one cluster when set
	ClusterName string
}

func (p Params) needsHosts() bool {
	return p.IncludeHost || p.IncludeNamespace || p.IncludeDisk
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	curTime := cfg.CurTime
	if curTime == nil {
		curTime = func(context.Context) time.Time { return time.Now() }
	}

	return &Aggregator{
		cp:          cfg.ControlPlane,
		orgID:       cfg.OrgID,
		projectIDs:  cfg.ProjectIDs,
		region:      cfg.Region,
		concurrency: cfg.Concurrency,
		curTime:     curTime,
		stats:       &Stats{},
	}
}

// Stats returns the run counters.
func (agg *Aggregator) Stats() StatsSnapshot {
	return agg.stats.Snapshot()
}

// projects resolves the run scope.
func (agg *Aggregator) projects(ctx context.Context) ([]controlplane.Project, error) {
	if len(agg.projectIDs) == 0 {
		projects, err := agg.cp.ListProjects(ctx, agg.orgID)
		if err != nil {
			return nil, fmt.Errorf("ListProjects: %w", err)
		}

		return projects, nil
	}

	projects := make([]controlplane.Project, 0, len(agg.projectIDs))
	for _, id := range agg.projectIDs {
		name, err := agg.cp.ProjectName(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ProjectName %s: %w", id, err)
		}

		projects = append(projects, controlplane.Project{ID: id, Name: name, OrgID: agg.orgID})
	}

	return projects, nil
}

// descriptors lists the clusters of one project.
func (agg *Aggregator) descriptors(ctx context.Context, project controlplane.Project) ([]cluster.Descriptor, error) {
	raws, err := agg.cp.ListClusters(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("ListClusters %s: %w", project.ID, err)
	}

	return lo.Map(raws, func(raw controlplane.Cluster, _ int) cluster.Descriptor {
		return cluster.NewDescriptor(raw, project.Name, agg.region)
	}), nil
}

// ListClusters lazily yields one descriptor per cluster in listing order. A listing fault is
// yielded once and ends the sequence.
func (agg *Aggregator) ListClusters(ctx context.Context) iter.Seq2[cluster.Descriptor, error] {
	return func(yield func(cluster.Descriptor, error) bool) {
		projects, err := agg.projects(ctx)
		if err != nil {
			yield(cluster.Descriptor{}, err)
			return
		}

		for _, project := range projects {
			descs, err := agg.descriptors(ctx, project)
			if err != nil {
				yield(cluster.Descriptor{}, err)
				return
			}

			for _, d := range descs {
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

// BuildReports lazily yields one record per cluster in listing order. Per-cluster faults degrade that
// cluster's record and never end the sequence; listing faults and cancellation do.
func (agg *Aggregator) BuildReports(ctx context.Context, params Params) iter.Seq2[report.Record, error] {
	return func(yield func(report.Record, error) bool) {
		agg.stats.Reset()

		start := agg.curTime(ctx)
		defer func() {
			s := agg.stats.Snapshot()
			log.Printf("[INFO] fleet: %d clusters, %d degraded, %d without primary, %d failed calls in %s",
				s.Clusters, s.Degraded, s.NoPrimary, s.FetchFailures, agg.curTime(ctx).Sub(start).Round(time.Millisecond))
		}()

		projects, err := agg.projects(ctx)
		if err != nil {
			yield(report.Record{}, err)
			return
		}

		for _, project := range projects {
			if err := utils.CtxDone(ctx); err != nil {
				yield(report.Record{}, err)
				return
			}

			descs, err := agg.descriptors(ctx, project)
			if err != nil {
				yield(report.Record{}, err)
				return
			}

			if params.ClusterName != "" {
				descs = lo.Filter(descs, func(d cluster.Descriptor, _ int) bool { return d.Name == params.ClusterName })
			}

			if len(descs) == 0 {
				continue
			}

			hosts, hostsOK := agg.projectHosts(ctx, project, params)

			if !agg.emitProject(ctx, descs, hosts, hostsOK, params, yield) {
				return
			}
		}
	}
}

// projectHosts fetches the host list once per project. A fault is logged and degrades every
// cluster of the project.
func (agg *Aggregator) projectHosts(ctx context.Context, project controlplane.Project, params Params) ([]controlplane.Host, bool) {
	if !params.needsHosts() {
		return nil, true
	}

	hosts, err := agg.cp.ListHosts(ctx, project.ID)
	if err != nil {
		agg.stats.IncFetchFailures()
		log.Printf("[ERROR] fleet: ListHosts %s (%s): %s", project.ID, project.Name, err)
		return nil, false
	}

	return hosts, true
}

// emitProject builds and yields the records of one project. Returns false when the consumer stopped
// or the context is done.
func (agg *Aggregator) emitProject(
	ctx context.Context,
	descs []cluster.Descriptor,
	hosts []controlplane.Host,
	hostsOK bool,
	params Params,
	yield func(report.Record, error) bool,
) bool {
	if agg.concurrency < 2 || len(descs) < 2 {
		for _, d := range descs {
			if err := utils.CtxDone(ctx); err != nil {
				yield(report.Record{}, err)
				return false
			}

			rec, err := agg.buildRecord(ctx, d, hosts, hostsOK, params)
			if !yield(rec, err) {
				return false
			}
		}

		return true
	}

	type built struct {
		rec report.Record
		err error
	}

	results := make([]built, len(descs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(agg.concurrency)

	for i, d := range descs {
		eg.Go(func() error {
			rec, err := agg.buildRecord(egCtx, d, hosts, hostsOK, params)
			results[i] = built{rec: rec, err: err}
			return nil
		})
	}

	_ = eg.Wait()

	if err := utils.CtxDone(ctx); err != nil {
		yield(report.Record{}, err)
		return false
	}

	for _, r := range results {
		if !yield(r.rec, r.err) {
			return false
		}
	}

	return true
}

// buildRecord assembles the record of one cluster. Collection faults are logged and leave the
// affected fields out; only an inconsistent record is returned as an error.
func (agg *Aggregator) buildRecord(
	ctx context.Context,
	d cluster.Descriptor,
	hosts []controlplane.Host,
	hostsOK bool,
	params Params,
) (report.Record, error) {
	agg.stats.IncClusters()

	b := report.NewBuilder(d)
	degraded := !hostsOK

	if !d.RegionConfigured {
		log.Printf("[INFO] fleet: cluster %s has no nodes in %s", d.Name, agg.region)
	}

	if hostsOK && params.needsHosts() {
		if _, ok := d.ResolvePrimary(hosts); !ok {
			agg.stats.IncNoPrimary()
			degraded = true
		}
	}

	if params.IncludeNamespace && hostsOK {
		counts, err := d.AccumulateNamespaceCounts(ctx, agg.cp, hosts, params.Granularity, params.Period)
		if err != nil {
			agg.stats.IncFetchFailures()
			log.Printf("[WARN] fleet: cluster %s namespace counts: %s", d.Name, err)
			degraded = true
		}

		b.WithNamespace(counts)
	}

	if (params.IncludeHost || params.IncludeDisk) && hostsOK {
		snap, err := d.CollectPrimaryMetrics(ctx, agg.cp, hosts, cluster.Options{
			Host:        params.IncludeHost,
			Disk:        params.IncludeDisk,
			Granularity: params.Granularity,
			Period:      params.Period,
		})
		if err != nil {
			agg.stats.IncFetchFailures()
			log.Printf("[WARN] fleet: cluster %s metrics: %s", d.Name, err)
			degraded = true
		}

		b.WithMetrics(snap)
	}

	if degraded {
		agg.stats.IncDegraded()
	}

	rec, err := b.WithRun(params.Granularity, params.Period).Build()
	if err != nil {
		return report.Record{}, fmt.Errorf("Build %s: %w", d.Name, err)
	}

	return rec, nil
}
