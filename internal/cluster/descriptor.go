package cluster

import (
	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
)

// State is the lifecycle state of a cluster.
type State string

const (
	StateCreating  State = "CREATING"
	StateIdle      State = "IDLE"
	StateUpdating  State = "UPDATING"
	StateRepairing State = "REPAIRING"
	StateDeleting  State = "DELETING"
	StateDeleted   State = "DELETED"
)

// NodeCounts - node layout of one region
type NodeCounts struct {
	Electable int64
	Analytics int64
	ReadOnly  int64
}

// Descriptor is a read-only snapshot of one cluster for the duration of a run.
type Descriptor struct {
	ProjectName string
	ProjectID   string
	ID          string
	Name        string
	DiskSizeGB  float64
	Tier        string
	IOPS        int64
	VolumeType  string
	Shards      int64
	Nodes       NodeCounts
	// RegionConfigured is false when the cluster has no replication spec entry for the requested
	// region. Nodes is all zeros in that case.
	RegionConfigured bool
	MajorVersion     string
	Version          string
	State            State
}

// NewDescriptor builds a descriptor from the raw listing. Node counts come from the first
// replication spec's entry for region; each role defaults to zero on its own.
func NewDescriptor(raw controlplane.Cluster, projectName, region string) Descriptor {
	nodes, configured := regionNodes(raw.ReplicationSpecs, region)

	return Descriptor{
		ProjectName:      projectName,
		ProjectID:        raw.ProjectID,
		ID:               raw.ID,
		Name:             raw.Name,
		DiskSizeGB:       raw.DiskSizeGB,
		Tier:             raw.InstanceSize,
		IOPS:             raw.DiskIOPS,
		VolumeType:       raw.VolumeType,
		Shards:           raw.NumShards,
		Nodes:            nodes,
		RegionConfigured: configured,
		MajorVersion:     raw.MajorVersion,
		Version:          raw.Version,
		State:            State(raw.StateName),
	}
}

func regionNodes(specs []controlplane.ReplicationSpec, region string) (NodeCounts, bool) {
	if len(specs) == 0 {
		return NodeCounts{}, false
	}

	cfg, ok := specs[0].RegionsConfig[region]
	if !ok {
		return NodeCounts{}, false
	}

	return NodeCounts{
		Electable: deref(cfg.ElectableNodes),
		Analytics: deref(cfg.AnalyticsNodes),
		ReadOnly:  deref(cfg.ReadOnlyNodes),
	}, true
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}

	return *v
}
