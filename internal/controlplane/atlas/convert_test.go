package atlas

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/atlas/mongodbatlas"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
	"github.com/mgmonteleone/AtlasFleetReport/internal/pkg/testutils"
)

// TestConvertCluster verifies the mapping of provider settings and replication specs.
func TestConvertCluster(t *testing.T) {
	t.Parallel()

	raw := &mongodbatlas.Cluster{
		ID:                  "c1",
		Name:                "orders",
		GroupID:             "p1",
		DiskSizeGB:          lo.ToPtr(40.0),
		NumShards:           lo.ToPtr[int64](1),
		MongoDBMajorVersion: "7.0",
		MongoDBVersion:      "7.0.12",
		StateName:           "IDLE",
		ProviderSettings: &mongodbatlas.ProviderSettings{
			InstanceSizeName: "M30",
			DiskIOPS:         lo.ToPtr[int64](3000),
			VolumeType:       "STANDARD",
		},
		ReplicationSpecs: []mongodbatlas.ReplicationSpec{{
			ID:        "rs1",
			NumShards: lo.ToPtr[int64](1),
			ZoneName:  "Zone 1",
			RegionsConfig: map[string]mongodbatlas.RegionsConfig{
				"US_EAST_1": {ElectableNodes: lo.ToPtr[int64](3), Priority: lo.ToPtr[int64](7)},
			},
		}},
	}

	got := convertCluster(raw)

	assert.Equal(t, "p1", got.ProjectID)
	assert.InDelta(t, 40.0, got.DiskSizeGB, 0.0001)
	assert.Equal(t, "M30", got.InstanceSize)
	assert.Equal(t, int64(3000), got.DiskIOPS)
	assert.Equal(t, "7.0.12", got.Version)

	require.Len(t, got.ReplicationSpecs, 1)
	rc, ok := got.ReplicationSpecs[0].RegionsConfig["US_EAST_1"]
	require.True(t, ok)
	assert.Equal(t, int64(3), *rc.ElectableNodes)
	assert.Nil(t, rc.AnalyticsNodes)
}

// TestConvertCluster_NoProviderSettings verifies that missing nested settings default to zero values.
func TestConvertCluster_NoProviderSettings(t *testing.T) {
	t.Parallel()

	got := convertCluster(&mongodbatlas.Cluster{ID: "c1", Name: "orders"})

	assert.Empty(t, got.InstanceSize)
	assert.Zero(t, got.DiskIOPS)
	assert.Zero(t, got.DiskSizeGB)
	assert.Empty(t, got.ReplicationSpecs)
}

// TestConvertProcess verifies role and alias extraction.
func TestConvertProcess(t *testing.T) {
	t.Parallel()

	got := convertProcess(&mongodbatlas.Process{
		ID:        "atlas-abc-shard-00-00.abcde.mongodb.net:27017",
		GroupID:   "p1",
		Hostname:  "atlas-abc-shard-00-00.abcde.mongodb.net",
		Port:      27017,
		TypeName:  "REPLICA_PRIMARY",
		UserAlias: "Orders-shard-00-00.abcde.mongodb.net",
	})

	assert.True(t, got.IsPrimary())
	assert.Equal(t, "orders", got.ClusterAlias)
	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, controlplane.RolePrimary, got.Role)
}

// TestConvertMeasurements verifies summarizing and that empty series are dropped.
func TestConvertMeasurements(t *testing.T) {
	t.Parallel()

	pm := &mongodbatlas.ProcessMeasurements{
		Measurements: []*mongodbatlas.Measurements{
			{
				Name: "CACHE_USED_BYTES",
				DataPoints: []*mongodbatlas.DataPoints{
					{Timestamp: "2024-05-01T10:00:00Z", Value: lo.ToPtr[float32](2)},
					{Timestamp: "2024-05-01T11:00:00Z", Value: nil},
					{Timestamp: "2024-05-01T12:00:00Z", Value: lo.ToPtr[float32](4)},
				},
			},
			{
				Name:       "NETWORK_BYTES_IN",
				DataPoints: []*mongodbatlas.DataPoints{{Timestamp: "2024-05-01T10:00:00Z"}},
			},
			nil,
		},
	}

	got := convertMeasurements("h1", pm)
	require.Len(t, got, 1)

	assert.Equal(t, measurement.CacheUsed, got[0].ID)
	assert.Equal(t, "h1", got[0].HostID)
	assert.InDelta(t, 3.0, got[0].Stats.Mean, 0.0001)
	assert.InDelta(t, 4.0, got[0].Stats.Max, 0.0001)
	assert.Equal(t, testutils.MustParseTime(t, "2024-05-01T10:00:00Z"), got[0].Start)
	assert.Equal(t, testutils.MustParseTime(t, "2024-05-01T12:00:00Z"), got[0].End)

	assert.Nil(t, convertMeasurements("h1", nil))
}

// TestConvertProjects verifies organization filtering and the creation cutoff.
func TestConvertProjects(t *testing.T) {
	t.Parallel()

	raws := []*mongodbatlas.Project{
		{ID: "p1", OrgID: "o1", Name: "old", Created: "2023-01-01T00:00:00Z"},
		{ID: "p2", OrgID: "o1", Name: "new", Created: "2024-06-01T00:00:00Z"},
		{ID: "p3", OrgID: "o2", Name: "other", Created: "2024-06-01T00:00:00Z"},
		nil,
	}

	projects := convertProjects(raws, "o1")
	require.Len(t, projects, 2)

	recent := createdSince(projects, testutils.MustParseDate(t, "2024-01-01"))
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].Name)
}

// TestConvertEvents verifies the event mapping.
func TestConvertEvents(t *testing.T) {
	t.Parallel()

	got := convertEvents([]*mongodbatlas.Event{{
		ID:            "e1",
		EventTypeName: "CLUSTER_DELETED",
		GroupID:       "p1",
		ClusterName:   "orders",
		Created:       "2024-05-01T10:00:00Z",
	}, nil})

	require.Len(t, got, 1)
	assert.Equal(t, "orders", got[0].ClusterName)
	assert.Equal(t, testutils.MustParseTime(t, "2024-05-01T10:00:00Z"), got[0].Created)
}
