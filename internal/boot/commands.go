package boot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/fleet"
	"github.com/mgmonteleone/AtlasFleetReport/internal/metrics"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/docstore"
	"github.com/mgmonteleone/AtlasFleetReport/internal/sink/parquet"
)

const dateLayout = "2006-01-02"

func newReportCmd(a *app) *cobra.Command {
	var (
		sinks                []string
		noHost, noNs, noDisk bool
		granularity, period  string
		clusterName, region  string
		concurrency          int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Builds one record per cluster and writes it to the enabled sinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := &a.cfg.Report
			flags := cmd.Flags()

			if flags.Changed("granularity") {
				r.Granularity = granularity
			}
			if flags.Changed("period") {
				r.Period = period
			}
			if flags.Changed("cluster") {
				r.ClusterName = clusterName
			}
			if flags.Changed("region") {
				r.Region = region
			}
			if flags.Changed("concurrency") {
				r.Concurrency = concurrency
			}
			if noHost {
				r.IncludeHost = false
			}
			if noNs {
				r.IncludeNamespace = false
			}
			if noDisk {
				r.IncludeDisk = false
			}
			if flags.Changed("sink") {
				if err := a.cfg.EnableSinks(sinks); err != nil {
					return err
				}
			}

			return a.runReport(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&sinks, "sink", nil, "Sinks to write to: sheets, docstore, parquet, forward")
	flags.StringVar(&granularity, "granularity", "", "Measurement granularity, e.g. HOUR")
	flags.StringVar(&period, "period", "", "Measurement period, e.g. WEEKS_1")
	flags.StringVar(&clusterName, "cluster", "", "Only report this cluster")
	flags.StringVar(&region, "region", "", "Replication region node counts are read from")
	flags.IntVar(&concurrency, "concurrency", 0, "Clusters built in parallel within a project")
	flags.BoolVar(&noHost, "no-host", false, "Skip host metrics")
	flags.BoolVar(&noNs, "no-namespace", false, "Skip namespace counts")
	flags.BoolVar(&noDisk, "no-disk", false, "Skip disk metrics")

	return cmd
}

func (a *app) runReport(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg

	if err := cfg.Validate(); err != nil {
		return err
	}

	g, p, err := cfg.Window()
	if err != nil {
		return err
	}

	api, err := a.newAPI(cfg)
	if err != nil {
		return err
	}

	scope, err := a.scopeName(ctx, api)
	if err != nil {
		return err
	}

	runTime := a.curTime(ctx)
	collector := metrics.NewCollector(time.Now())

	out, err := a.openSinks(ctx, cfg, scope, runTime)
	if err != nil {
		return err
	}

	agg := fleet.New(fleet.Config{
		ControlPlane: api,
		OrgID:        cfg.Atlas.OrgID,
		ProjectIDs:   cfg.Atlas.ProjectIDs,
		Region:       cfg.Report.Region,
		Concurrency:  cfg.Report.Concurrency,
		CurTime:      a.curTime,
	})

	log.Printf("[INFO] building report for %s: granularity=%s period=%s", scope, g, p)

	n, err := sink.Drain(ctx, agg.BuildReports(ctx, fleet.Params{
		Granularity:      g,
		Period:           p,
		IncludeHost:      cfg.Report.IncludeHost,
		IncludeNamespace: cfg.Report.IncludeNamespace,
		IncludeDisk:      cfg.Report.IncludeDisk,
		ClusterName:      cfg.Report.ClusterName,
	}), out)

	stats := agg.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records (clusters=%d degraded=%d no_primary=%d fetch_failures=%d) in %s\n",
		n, stats.Clusters, stats.Degraded, stats.NoPrimary, stats.FetchFailures,
		a.curTime(ctx).Sub(runTime).Round(time.Millisecond))

	logUsage(ctx, collector)

	if err != nil {
		return fmt.Errorf("sink.Drain: %w", err)
	}

	return nil
}

func logUsage(ctx context.Context, collector *metrics.Collector) {
	u, err := collector.Sample(ctx)
	if err != nil {
		log.Printf("[WARN] sampling process usage: %s", err)
	}

	log.Printf("[INFO] report process: uptime=%s cpu=%.1f%% rss=%s",
		u.Uptime.Round(time.Millisecond), u.CPU, humanize.Bytes(u.MemoryRSS))
}

// scopeName names the run: the organization when one is configured, otherwise the first project.
func (a *app) scopeName(ctx context.Context, api fleetAPI) (string, error) {
	if len(a.cfg.Atlas.ProjectIDs) == 0 {
		org, err := api.Organization(ctx, a.cfg.Atlas.OrgID)
		if err != nil {
			return "", fmt.Errorf("Organization: %w", err)
		}

		return org.Name, nil
	}

	name, err := api.ProjectName(ctx, a.cfg.Atlas.ProjectIDs[0])
	if err != nil {
		return "", fmt.Errorf("ProjectName: %w", err)
	}

	return name, nil
}

func newProjectsSinceCmd(a *app) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "projects-since",
		Short: "Lists the projects of the organization created since a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProjectsSince(cmd, since)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Date as YYYY-MM-DD")

	return cmd
}

func (a *app) runProjectsSince(cmd *cobra.Command, since string) error {
	ctx := cmd.Context()

	from, err := parseSince(since)
	if err != nil {
		return err
	}

	if a.cfg.Atlas.OrgID == "" {
		return errors.New("usage: projects-since needs atlas.org_id")
	}
	if err = a.cfg.ValidateAtlas(); err != nil {
		return err
	}

	api, err := a.newAPI(a.cfg)
	if err != nil {
		return err
	}

	projects, err := api.ProjectsCreatedSince(ctx, a.cfg.Atlas.OrgID, from)
	if err != nil {
		return fmt.Errorf("ProjectsCreatedSince: %w", err)
	}

	now := a.curTime(ctx)
	w := cmd.OutOrStdout()
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d clusters\n",
			p.Name, p.ID, humanize.RelTime(p.Created, now, "ago", "from now"), p.ClusterCount)
	}

	log.Printf("[INFO] %d projects created since %s", len(projects), from.Format(dateLayout))

	return nil
}

func newDeletedClustersCmd(a *app) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "deleted-clusters",
		Short: "Lists the clusters deleted since a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDeletedClusters(cmd, since)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Date as YYYY-MM-DD")

	return cmd
}

func (a *app) runDeletedClusters(cmd *cobra.Command, since string) error {
	ctx := cmd.Context()

	from, err := parseSince(since)
	if err != nil {
		return err
	}

	if err = a.cfg.ValidateAtlas(); err != nil {
		return err
	}

	api, err := a.newAPI(a.cfg)
	if err != nil {
		return err
	}

	projects, err := a.scopeProjects(ctx, api)
	if err != nil {
		return err
	}

	now := a.curTime(ctx)
	w := cmd.OutOrStdout()

	var (
		total int
		errs  []error
	)
	for _, p := range projects {
		events, err := api.DeletedClusters(ctx, p.ID, from)
		if err != nil {
			log.Printf("[WARN] DeletedClusters %s: %s", p.ID, err)
			errs = append(errs, fmt.Errorf("DeletedClusters %s: %w", p.ID, err))
			continue
		}

		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, e.ClusterName, humanize.RelTime(e.Created, now, "ago", "from now"))
		}
		total += len(events)
	}

	log.Printf("[INFO] %d clusters deleted since %s", total, from.Format(dateLayout))

	return errors.Join(errs...)
}

func (a *app) scopeProjects(ctx context.Context, api fleetAPI) ([]controlplane.Project, error) {
	if len(a.cfg.Atlas.ProjectIDs) == 0 {
		projects, err := api.ListProjects(ctx, a.cfg.Atlas.OrgID)
		if err != nil {
			return nil, fmt.Errorf("ListProjects: %w", err)
		}

		return projects, nil
	}

	projects := make([]controlplane.Project, 0, len(a.cfg.Atlas.ProjectIDs))
	for _, id := range a.cfg.Atlas.ProjectIDs {
		name, err := api.ProjectName(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("ProjectName %s: %w", id, err)
		}

		projects = append(projects, controlplane.Project{ID: id, Name: name})
	}

	return projects, nil
}

func newExportParquetCmd(a *app) *cobra.Command {
	var collection, out string

	cmd := &cobra.Command{
		Use:   "export-parquet",
		Short: "Exports a stored report collection to a parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExportParquet(cmd, collection, out)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Stored collection to export")
	cmd.Flags().StringVar(&out, "out", "", "Output file, defaults to sinks.parquet.path")

	return cmd
}

func (a *app) runExportParquet(cmd *cobra.Command, collection, out string) error {
	ctx := cmd.Context()

	if collection == "" {
		return errors.New("usage: export-parquet --collection <name> [--out <file>]")
	}
	if a.cfg.Sinks.DocStore.URI == "" {
		return errors.New("usage: export-parquet needs sinks.docstore.uri")
	}
	if out == "" {
		out = a.cfg.Sinks.Parquet.Path
	}

	finder, closeStore, err := a.openStore(ctx, a.cfg, collection)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(ctx); err != nil {
			log.Printf("[WARN] closing store: %s", err)
		}
	}()

	n, err := parquet.Export(ctx, docstore.Records(ctx, finder, bson.D{}), out)
	if err != nil {
		return fmt.Errorf("parquet.Export: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, out)

	return nil
}

func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("usage: --since YYYY-MM-DD is required")
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since: %w", err)
	}

	return t, nil
}
