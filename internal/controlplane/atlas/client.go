// Package atlas implements controlplane.ControlPlane on top of the MongoDB Atlas Admin API.
package atlas

import (
	"context"
	"fmt"
	"time"

	"github.com/mongodb-forks/digest"
	"go.mongodb.org/atlas/mongodbatlas"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
)

const (
	defaultPageSize = 500
	defaultTimeout  = 30 * time.Second

	eventClusterDeleted = "CLUSTER_DELETED"
)

var (
	_ controlplane.ControlPlane = (*Client)(nil)
	_ controlplane.Inventory    = (*Client)(nil)
)

// Client is the Atlas control-plane client.
type Client struct {
	api      *mongodbatlas.Client
	timeout  time.Duration
	pageSize int
}

// New creates a Client authenticated with an API key pair.
func New(publicKey, privateKey string, opts ...Option) (*Client, error) {
	o := &options{
		timeout:  defaultTimeout,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pageSize <= 0 {
		o.pageSize = defaultPageSize
	}

	httpClient := o.httpClient
	if httpClient == nil {
		var err error

		httpClient, err = digest.NewTransport(publicKey, privateKey).Client()
		if err != nil {
			return nil, fmt.Errorf("digest transport: %w", err)
		}
	}

	var clientOpts []mongodbatlas.ClientOpt
	if o.baseURL != "" {
		clientOpts = append(clientOpts, mongodbatlas.SetBaseURL(o.baseURL))
	}

	api, err := mongodbatlas.New(httpClient, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("mongodbatlas.New: %w", err)
	}

	return &Client{
		api:      api,
		timeout:  o.timeout,
		pageSize: o.pageSize,
	}, nil
}

// Organization returns the organization's id and name.
func (c *Client) Organization(ctx context.Context, orgID string) (controlplane.Organization, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	org, _, err := c.api.Organizations.Get(ctx, orgID)
	if err != nil {
		return controlplane.Organization{}, fmt.Errorf("Organizations.Get: %w", err)
	}

	return controlplane.Organization{ID: org.ID, Name: org.Name}, nil
}

// ListProjects lists every project of the organization visible to the key.
func (c *Client) ListProjects(ctx context.Context, orgID string) ([]controlplane.Project, error) {
	projects, err := paginate(ctx, c, func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]*mongodbatlas.Project, error) {
		res, _, err := c.api.Projects.GetAllProjects(ctx, opts)
		if err != nil {
			return nil, err
		}

		return res.Results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("Projects.GetAllProjects: %w", err)
	}

	return convertProjects(projects, orgID), nil
}

// ProjectName resolves a project id to its name.
func (c *Client) ProjectName(ctx context.Context, projectID string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	p, _, err := c.api.Projects.GetOneProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("Projects.GetOneProject: %w", err)
	}

	return p.Name, nil
}

// ListClusters lists the clusters of a project.
func (c *Client) ListClusters(ctx context.Context, projectID string) ([]controlplane.Cluster, error) {
	raws, err := paginate(ctx, c, func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]mongodbatlas.Cluster, error) {
		res, _, err := c.api.Clusters.List(ctx, projectID, opts)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("Clusters.List: %w", err)
	}

	clusters := make([]controlplane.Cluster, 0, len(raws))
	for i := range raws {
		clusters = append(clusters, convertCluster(&raws[i]))
	}

	return clusters, nil
}

// ListHosts lists the processes of a project.
func (c *Client) ListHosts(ctx context.Context, projectID string) ([]controlplane.Host, error) {
	procs, err := paginate(ctx, c, func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]*mongodbatlas.Process, error) {
		res, _, err := c.api.Processes.List(ctx, projectID, &mongodbatlas.ProcessesListOptions{ListOptions: *opts})
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("Processes.List: %w", err)
	}

	hosts := make([]controlplane.Host, 0, len(procs))
	for _, p := range procs {
		if p == nil {
			continue
		}
		hosts = append(hosts, convertProcess(p))
	}

	return hosts, nil
}

// Measurement fetches one host-level series. A nil result means the API returned no data.
func (c *Client) Measurement(
	ctx context.Context,
	host controlplane.Host,
	id measurement.ID,
	g measurement.Granularity,
	p measurement.Period,
) (*measurement.Result, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := windowOptions(g, p)
	opts.M = []string{id.String()}

	res, _, err := c.api.ProcessMeasurements.List(ctx, host.ProjectID, host.Hostname, host.Port, opts)
	if err != nil {
		return nil, fmt.Errorf("ProcessMeasurements.List: %w", err)
	}

	for _, r := range convertMeasurements(host.ID, res) {
		if r.ID == id {
			return &r, nil
		}
	}

	return nil, nil
}

// DiskMeasurements fetches every disk series of every partition of the host.
func (c *Client) DiskMeasurements(
	ctx context.Context,
	host controlplane.Host,
	g measurement.Granularity,
	p measurement.Period,
) ([]measurement.Result, error) {
	partitions, err := paginate(ctx, c, func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]*mongodbatlas.ProcessDisk, error) {
		res, _, err := c.api.ProcessDisks.List(ctx, host.ProjectID, host.Hostname, host.Port, opts)
		if err != nil {
			return nil, err
		}

		return res.Results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ProcessDisks.List: %w", err)
	}

	var results []measurement.Result

	for _, part := range partitions {
		if part == nil {
			continue
		}

		got, err := c.diskMeasurements(ctx, host, part.PartitionName, g, p)
		if err != nil {
			return results, err
		}

		results = append(results, got...)
	}

	return results, nil
}

func (c *Client) diskMeasurements(
	ctx context.Context,
	host controlplane.Host,
	partition string,
	g measurement.Granularity,
	p measurement.Period,
) ([]measurement.Result, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, _, err := c.api.ProcessDiskMeasurements.List(ctx, host.ProjectID, host.Hostname, host.Port, partition, windowOptions(g, p))
	if err != nil {
		return nil, fmt.Errorf("ProcessDiskMeasurements.List %s: %w", partition, err)
	}
	if res == nil {
		return nil, nil
	}

	return convertMeasurements(host.ID, res.ProcessMeasurements), nil
}

// ListDatabases lists the database names on the host.
func (c *Client) ListDatabases(ctx context.Context, host controlplane.Host) ([]string, error) {
	dbs, err := paginate(ctx, c, func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]*mongodbatlas.ProcessDatabase, error) {
		res, _, err := c.api.ProcessDatabases.List(ctx, host.ProjectID, host.Hostname, host.Port, opts)
		if err != nil {
			return nil, err
		}

		return res.Results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("ProcessDatabases.List: %w", err)
	}

	names := make([]string, 0, len(dbs))
	for _, db := range dbs {
		if db != nil {
			names = append(names, db.DatabaseName)
		}
	}

	return names, nil
}

// DatabaseMeasurements fetches the per-database series of one database.
func (c *Client) DatabaseMeasurements(
	ctx context.Context,
	host controlplane.Host,
	db string,
	g measurement.Granularity,
	p measurement.Period,
) ([]measurement.Result, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, _, err := c.api.ProcessDatabaseMeasurements.List(ctx, host.ProjectID, host.Hostname, host.Port, db, windowOptions(g, p))
	if err != nil {
		return nil, fmt.Errorf("ProcessDatabaseMeasurements.List: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	return convertMeasurements(host.ID, res.ProcessMeasurements), nil
}

// ProjectsCreatedSince lists the organization's projects created at or after since.
func (c *Client) ProjectsCreatedSince(ctx context.Context, orgID string, since time.Time) ([]controlplane.Project, error) {
	projects, err := c.ListProjects(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return createdSince(projects, since), nil
}

// DeletedClusters lists the cluster deletion events of a project since the given time.
func (c *Client) DeletedClusters(ctx context.Context, projectID string, since time.Time) ([]controlplane.Event, error) {
	events, err := paginate(ctx, c, func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]*mongodbatlas.Event, error) {
		res, _, err := c.api.Events.ListProjectEvents(ctx, projectID, &mongodbatlas.EventListOptions{
			ListOptions: *opts,
			EventType:   []string{eventClusterDeleted},
			MinDate:     since.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}

		return res.Results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("Events.ListProjectEvents: %w", err)
	}

	return convertEvents(events), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}

	return ctx, func() {}
}

// paginate requests pages until one comes back short.
func paginate[T any](
	ctx context.Context,
	c *Client,
	fetch func(ctx context.Context, opts *mongodbatlas.ListOptions) ([]T, error),
) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		reqCtx, cancel := c.withTimeout(ctx)
		items, err := fetch(reqCtx, &mongodbatlas.ListOptions{PageNum: page, ItemsPerPage: c.pageSize})
		cancel()

		if err != nil {
			return all, fmt.Errorf("page %d: %w", page, err)
		}

		all = append(all, items...)

		if len(items) < c.pageSize {
			return all, nil
		}
	}
}

func windowOptions(g measurement.Granularity, p measurement.Period) *mongodbatlas.ProcessMeasurementListOptions {
	return &mongodbatlas.ProcessMeasurementListOptions{
		ListOptions: &mongodbatlas.ListOptions{},
		Granularity: g.Label(),
		Period:      p.Label(),
	}
}
