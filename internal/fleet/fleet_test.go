package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/testutils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/utils"
	"github.com/mgmonteleone/AtlasFleetReport/internal/report"
	"github.com/mgmonteleone/AtlasFleetReport/mocks"
)

var errBoom = errors.New("boom")

func rawCluster(id, name string) controlplane.Cluster {
	three := int64(3)

	return controlplane.Cluster{
		ID:           id,
		Name:         name,
		ProjectID:    "p1",
		InstanceSize: "M30",
		StateName:    "IDLE",
		ReplicationSpecs: []controlplane.ReplicationSpec{{
			RegionsConfig: map[string]controlplane.RegionConfig{"US_EAST_1": {ElectableNodes: &three}},
		}},
	}
}

func fleetHost(id, cluster string, role controlplane.Role) controlplane.Host {
	return controlplane.Host{ID: id, ProjectID: "p1", Hostname: id, Port: 27017, Role: role, ClusterAlias: cluster}
}

func collect(t *testing.T, agg *Aggregator, params Params) ([]report.Record, error) {
	t.Helper()

	var recs []report.Record
	for rec, err := range agg.BuildReports(context.Background(), params) {
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}

	return recs, nil
}

type BuildReportsSuite struct {
	suite.Suite

	cp *mocks.ControlPlaneMock
}

func TestBuildReportsSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BuildReportsSuite))
}

// SetupTest wires a fleet of three clusters where the second one has no primary.
func (s *BuildReportsSuite) SetupTest() {
	s.cp = &mocks.ControlPlaneMock{}

	s.cp.On("ProjectName", mock.Anything, "p1").Return("Billing", nil)
	s.cp.On("ListClusters", mock.Anything, "p1").Return([]controlplane.Cluster{
		rawCluster("c1", "alpha"),
		rawCluster("c2", "beta"),
		rawCluster("c3", "gamma"),
	}, nil)
	s.cp.On("ListHosts", mock.Anything, "p1").Return([]controlplane.Host{
		fleetHost("a0", "alpha", controlplane.RolePrimary),
		fleetHost("a1", "alpha", controlplane.RoleSecondary),
		fleetHost("b0", "beta", controlplane.RoleSecondary),
		fleetHost("b1", "beta", controlplane.RoleRecovering),
		fleetHost("g0", "gamma", controlplane.RoleSecondary),
		fleetHost("g1", "gamma", controlplane.RolePrimary),
	}, nil).Once()

	for _, id := range measurement.HostCatalog() {
		s.cp.On("Measurement", mock.Anything, mock.Anything, id, measurement.Hour, measurement.Weeks1).
			Return(&measurement.Result{ID: id, Stats: measurement.Stats{Mean: 1, Max: 2, Count: 1}}, nil)
	}
}

func (s *BuildReportsSuite) aggregator(concurrency int) *Aggregator {
	return New(Config{
		ControlPlane: s.cp,
		ProjectIDs:   []string{"p1"},
		Region:       "US_EAST_1",
		Concurrency:  concurrency,
		CurTime:      utils.Const(time.Time{}),
	})
}

// TestMissingPrimaryDegradesOneRecord verifies that a cluster without a primary still yields a record,
// without metric fields, and that its neighbours keep theirs.
func (s *BuildReportsSuite) TestMissingPrimaryDegradesOneRecord() {
	agg := s.aggregator(0)

	recs, err := collect(s.T(), agg, Params{Granularity: measurement.Hour, Period: measurement.Weeks1, IncludeHost: true})
	s.Require().NoError(err)
	s.Require().Len(recs, 3)

	key := measurement.CacheUsed.String()

	s.True(recs[0].Has(key))
	s.False(recs[1].Has(key))
	s.True(recs[2].Has(key))

	for i, name := range []string{"alpha", "beta", "gamma"} {
		v, ok := recs[i].Get("name")
		s.Require().True(ok)
		s.Equal(name, v.Label())

		g, ok := recs[i].Get(report.KeyGranularity)
		s.Require().True(ok)
		s.Equal("PT1H", g.Label())
	}

	st := agg.Stats()
	s.Equal(int64(3), st.Clusters)
	s.Equal(int64(1), st.NoPrimary)
	s.Equal(int64(1), st.Degraded)

	s.cp.AssertNumberOfCalls(s.T(), "ListHosts", 1)
	s.cp.AssertNumberOfCalls(s.T(), "Measurement", 2*len(measurement.HostCatalog()))
}

// TestConcurrentBuildKeepsOrder verifies that parallel building yields records in listing order.
func (s *BuildReportsSuite) TestConcurrentBuildKeepsOrder() {
	recs, err := collect(s.T(), s.aggregator(3), Params{Granularity: measurement.Hour, Period: measurement.Weeks1, IncludeHost: true})
	s.Require().NoError(err)
	s.Require().Len(recs, 3)

	for i, id := range []string{"c1", "c2", "c3"} {
		v, ok := recs[i].Get("id")
		s.Require().True(ok)
		s.Equal(id, v.Label())
	}

	s.False(recs[1].Has(measurement.NetworkBytesIn.String()))
	s.True(recs[2].Has(measurement.NetworkBytesIn.String()))
}

// TestClusterNameFilter verifies that only the named cluster is reported.
func (s *BuildReportsSuite) TestClusterNameFilter() {
	recs, err := collect(s.T(), s.aggregator(0), Params{
		Granularity: measurement.Hour,
		Period:      measurement.Weeks1,
		IncludeHost: true,
		ClusterName: "gamma",
	})
	s.Require().NoError(err)
	s.Require().Len(recs, 1)

	v, _ := recs[0].Get("name")
	s.Equal("gamma", v.Label())
	s.cp.AssertNumberOfCalls(s.T(), "Measurement", len(measurement.HostCatalog()))
}

// TestDescriptorOnly verifies that without any metric section no host listing happens.
func (s *BuildReportsSuite) TestDescriptorOnly() {
	recs, err := collect(s.T(), s.aggregator(0), Params{Granularity: measurement.Hour, Period: measurement.Weeks1})
	s.Require().NoError(err)
	s.Require().Len(recs, 3)
	s.Equal(17, recs[0].Len())

	s.cp.AssertNotCalled(s.T(), "ListHosts", mock.Anything, mock.Anything)
}

// TestEarlyStop verifies that breaking out of the sequence stops further remote calls.
func (s *BuildReportsSuite) TestEarlyStop() {
	agg := s.aggregator(0)

	n := 0
	for _, err := range agg.BuildReports(context.Background(), Params{
		Granularity: measurement.Hour,
		Period:      measurement.Weeks1,
		IncludeHost: true,
	}) {
		s.Require().NoError(err)
		n++
		break
	}

	s.Equal(1, n)
	s.cp.AssertNumberOfCalls(s.T(), "Measurement", len(measurement.HostCatalog()))
}

// TestBuildReports_ListingFaultEndsSequence verifies that a cluster listing fault is yielded once and ends the run.
func TestBuildReports_ListingFaultEndsSequence(t *testing.T) {
	t.Parallel()

	cp := &mocks.ControlPlaneMock{}
	cp.On("ListProjects", mock.Anything, "org").Return([]controlplane.Project{{ID: "p1", Name: "A"}, {ID: "p2", Name: "B"}}, nil)
	cp.On("ListClusters", mock.Anything, "p1").Return(nil, errBoom).Once()

	agg := New(Config{ControlPlane: cp, OrgID: "org", Region: "US_EAST_1"})

	var errs []error
	n := 0
	for _, err := range agg.BuildReports(context.Background(), Params{}) {
		n++
		if err != nil {
			errs = append(errs, err)
		}
	}

	require.Len(t, errs, 1)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, errs[0], errBoom)
	cp.AssertNotCalled(t, "ListClusters", mock.Anything, "p2")
}

// TestBuildReports_HostListFaultDegradesProject verifies that a host listing fault leaves records without metrics.
func TestBuildReports_HostListFaultDegradesProject(t *testing.T) {
	t.Parallel()

	cp := &mocks.ControlPlaneMock{}
	cp.On("ProjectName", mock.Anything, "p1").Return("Billing", nil)
	cp.On("ListClusters", mock.Anything, "p1").Return([]controlplane.Cluster{rawCluster("c1", "alpha"), rawCluster("c2", "beta")}, nil)
	cp.On("ListHosts", mock.Anything, "p1").Return(nil, errBoom).Once()

	agg := New(Config{ControlPlane: cp, ProjectIDs: []string{"p1"}, Region: "US_EAST_1"})

	recs, err := collect(t, agg, Params{Granularity: measurement.Hour, Period: measurement.Weeks1, IncludeHost: true, IncludeNamespace: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	for _, rec := range recs {
		assert.False(t, rec.Has("views"))
		assert.False(t, rec.Has(measurement.CacheUsed.String()))
		assert.True(t, rec.Has(report.KeyPeriod))
	}

	st := agg.Stats()
	assert.Equal(t, int64(2), st.Degraded)
	assert.Equal(t, int64(1), st.FetchFailures)
}

// TestBuildReports_MetricFaultIsolated verifies that a remote fault for one cluster keeps the others complete.
func TestBuildReports_MetricFaultIsolated(t *testing.T) {
	t.Parallel()

	cp := &mocks.ControlPlaneMock{}
	cp.On("ProjectName", mock.Anything, "p1").Return("Billing", nil)
	cp.On("ListClusters", mock.Anything, "p1").Return([]controlplane.Cluster{rawCluster("c1", "alpha"), rawCluster("c2", "beta")}, nil)

	alpha := fleetHost("a0", "alpha", controlplane.RolePrimary)
	beta := fleetHost("b0", "beta", controlplane.RolePrimary)
	cp.On("ListHosts", mock.Anything, "p1").Return([]controlplane.Host{alpha, beta}, nil)

	cp.On("DiskMeasurements", mock.Anything, alpha, mock.Anything, mock.Anything).Return(nil, errBoom)
	cp.On("DiskMeasurements", mock.Anything, beta, mock.Anything, mock.Anything).Return([]measurement.Result{
		{ID: measurement.DiskUtilizationMax, Stats: measurement.Stats{Mean: 10, Max: 90, Count: 2}},
	}, nil)

	agg := New(Config{ControlPlane: cp, ProjectIDs: []string{"p1"}, Region: "US_EAST_1"})

	recs, err := collect(t, agg, Params{Granularity: measurement.Hour, Period: measurement.Weeks1, IncludeDisk: true})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.False(t, recs[0].Has(measurement.DiskUtilizationMax.String()))

	v, ok := recs[1].Get(measurement.DiskUtilizationMax.String())
	require.True(t, ok)
	assert.Equal(t, 90.0, v.Label())
}

// TestStatsPerRun verifies that every run starts its counters from zero.
func (s *BuildReportsSuite) TestStatsPerRun() {
	agg := s.aggregator(0)
	params := Params{Granularity: measurement.Hour, Period: measurement.Weeks1, IncludeHost: true}

	_, err := collect(s.T(), agg, params)
	s.Require().NoError(err)

	_, err = collect(s.T(), agg, params)
	s.Require().NoError(err)

	st := agg.Stats()
	s.Equal(int64(3), st.Clusters)
	s.Equal(int64(1), st.NoPrimary)
	s.Equal(int64(1), st.Degraded)
}

// TestListClusters verifies region defaulting and fault propagation of the listing.
func TestListClusters(t *testing.T) {
	t.Parallel()

	cp := &mocks.ControlPlaneMock{}
	cp.On("ListProjects", mock.Anything, "org").Return([]controlplane.Project{{ID: "p1", Name: "A"}, {ID: "p2", Name: "B"}}, nil)
	cp.On("ListClusters", mock.Anything, "p1").Return([]controlplane.Cluster{rawCluster("c1", "alpha")}, nil)
	cp.On("ListClusters", mock.Anything, "p2").Return(nil, errBoom)

	agg := New(Config{ControlPlane: cp, OrgID: "org", Region: "EU_WEST_1"})

	var names []string
	var gotErr error
	for d, err := range agg.ListClusters(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}

		names = append(names, d.Name)
		assert.False(t, d.RegionConfigured)
		assert.Zero(t, d.Nodes.Electable)
		assert.Equal(t, "A", d.ProjectName)
	}

	assert.Equal(t, []string{"alpha"}, names)
	require.ErrorIs(t, gotErr, errBoom)
}

// TestBuildReports_CancelledContext verifies that a cancelled run yields the context error.
func TestBuildReports_CancelledContext(t *testing.T) {
	t.Parallel()

	cp := &mocks.ControlPlaneMock{}
	cp.On("ListProjects", mock.Anything, "org").Return([]controlplane.Project{{ID: "p1", Name: "A"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := New(Config{
		ControlPlane: cp,
		OrgID:        "org",
		CurTime:      utils.Const(testutils.MustParseTime(t, "2024-05-01T10:00:00Z")),
	})

	for _, err := range agg.BuildReports(ctx, Params{}) {
		require.ErrorIs(t, err, context.Canceled)
	}

	cp.AssertNotCalled(t, "ListClusters", mock.Anything, mock.Anything)
}
