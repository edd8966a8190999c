// Package mocks holds testify mocks for the collaborator interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
)

// ControlPlaneMock implements controlplane.ControlPlane and controlplane.Inventory.
type ControlPlaneMock struct {
	mock.Mock
}

var (
	_ controlplane.ControlPlane = (*ControlPlaneMock)(nil)
	_ controlplane.Inventory    = (*ControlPlaneMock)(nil)
)

// Organization implements controlplane.ControlPlane.
func (m *ControlPlaneMock) Organization(ctx context.Context, orgID string) (controlplane.Organization, error) {
	args := m.Called(ctx, orgID)
	org, _ := args.Get(0).(controlplane.Organization)
	return org, args.Error(1)
}

// ListProjects implements controlplane.ControlPlane.
func (m *ControlPlaneMock) ListProjects(ctx context.Context, orgID string) ([]controlplane.Project, error) {
	args := m.Called(ctx, orgID)
	projects, _ := args.Get(0).([]controlplane.Project)
	return projects, args.Error(1)
}

// ProjectName implements controlplane.ControlPlane.
func (m *ControlPlaneMock) ProjectName(ctx context.Context, projectID string) (string, error) {
	args := m.Called(ctx, projectID)
	return args.String(0), args.Error(1)
}

// ListClusters implements controlplane.ControlPlane.
func (m *ControlPlaneMock) ListClusters(ctx context.Context, projectID string) ([]controlplane.Cluster, error) {
	args := m.Called(ctx, projectID)
	clusters, _ := args.Get(0).([]controlplane.Cluster)
	return clusters, args.Error(1)
}

// ListHosts implements controlplane.ControlPlane.
func (m *ControlPlaneMock) ListHosts(ctx context.Context, projectID string) ([]controlplane.Host, error) {
	args := m.Called(ctx, projectID)
	hosts, _ := args.Get(0).([]controlplane.Host)
	return hosts, args.Error(1)
}

// Measurement implements controlplane.ControlPlane.
func (m *ControlPlaneMock) Measurement(ctx context.Context, host controlplane.Host, id measurement.ID, g measurement.Granularity, p measurement.Period) (*measurement.Result, error) {
	args := m.Called(ctx, host, id, g, p)
	res, _ := args.Get(0).(*measurement.Result)
	return res, args.Error(1)
}

// DiskMeasurements implements controlplane.ControlPlane.
func (m *ControlPlaneMock) DiskMeasurements(ctx context.Context, host controlplane.Host, g measurement.Granularity, p measurement.Period) ([]measurement.Result, error) {
	args := m.Called(ctx, host, g, p)
	res, _ := args.Get(0).([]measurement.Result)
	return res, args.Error(1)
}

// ListDatabases implements controlplane.ControlPlane.
func (m *ControlPlaneMock) ListDatabases(ctx context.Context, host controlplane.Host) ([]string, error) {
	args := m.Called(ctx, host)
	dbs, _ := args.Get(0).([]string)
	return dbs, args.Error(1)
}

// DatabaseMeasurements implements controlplane.ControlPlane.
func (m *ControlPlaneMock) DatabaseMeasurements(ctx context.Context, host controlplane.Host, db string, g measurement.Granularity, p measurement.Period) ([]measurement.Result, error) {
	args := m.Called(ctx, host, db, g, p)
	res, _ := args.Get(0).([]measurement.Result)
	return res, args.Error(1)
}

// ProjectsCreatedSince implements controlplane.Inventory.
func (m *ControlPlaneMock) ProjectsCreatedSince(ctx context.Context, orgID string, since time.Time) ([]controlplane.Project, error) {
	args := m.Called(ctx, orgID, since)
	projects, _ := args.Get(0).([]controlplane.Project)
	return projects, args.Error(1)
}

// DeletedClusters implements controlplane.Inventory.
func (m *ControlPlaneMock) DeletedClusters(ctx context.Context, projectID string, since time.Time) ([]controlplane.Event, error) {
	args := m.Called(ctx, projectID, since)
	events, _ := args.Get(0).([]controlplane.Event)
	return events, args.Error(1)
}
