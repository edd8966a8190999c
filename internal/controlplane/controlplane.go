package controlplane

import (
	"context"
	"time"

	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
)

// ControlPlane is the subset of the Atlas admin API the report needs.
type ControlPlane interface {
	Organization(ctx context.Context, orgID string) (Organization, error)
	ListProjects(ctx context.Context, orgID string) ([]Project, error)
	ProjectName(ctx context.Context, projectID string) (string, error)
	ListClusters(ctx context.Context, projectID string) ([]Cluster, error)
	ListHosts(ctx context.Context, projectID string) ([]Host, error)

	// Measurement returns nil when the API has no data for the window.
	Measurement(ctx context.Context, host Host, id measurement.ID, g measurement.Granularity, p measurement.Period) (*measurement.Result, error)
	DiskMeasurements(ctx context.Context, host Host, g measurement.Granularity, p measurement.Period) ([]measurement.Result, error)
	ListDatabases(ctx context.Context, host Host) ([]string, error)
	DatabaseMeasurements(ctx context.Context, host Host, db string, g measurement.Granularity, p measurement.Period) ([]measurement.Result, error)
}

// Inventory answers housekeeping questions about the organization.
type Inventory interface {
	ProjectsCreatedSince(ctx context.Context, orgID string, since time.Time) ([]Project, error)
	DeletedClusters(ctx context.Context, projectID string, since time.Time) ([]Event, error)
}

// Organization - Atlas organization
type Organization struct {
	ID   string
	Name string
}

// Project - Atlas project (group)
type Project struct {
	ID           string
	Name         string
	OrgID        string
	Created      time.Time
	ClusterCount int
}

// Event - Atlas audit event
type Event struct {
	ID          string
	Type        string
	ProjectID   string
	ClusterName string
	Created     time.Time
}
