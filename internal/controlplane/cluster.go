package controlplane

// Cluster is the raw cluster configuration as listed by the API.
type Cluster struct {
	ID           string
	Name         string
	ProjectID    string
	DiskSizeGB   float64
	InstanceSize string
	DiskIOPS     int64
	VolumeType   string
	NumShards    int64
	MajorVersion string
	Version      string
	StateName    string

	ReplicationSpecs []ReplicationSpec
}

// ReplicationSpec maps region names to the node layout configured there.
type ReplicationSpec struct {
	ID            string
	ZoneName      string
	NumShards     int64
	RegionsConfig map[string]RegionConfig
}

// RegionConfig holds node counts per role. Nil means the role was not configured.
type RegionConfig struct {
	ElectableNodes *int64
	AnalyticsNodes *int64
	ReadOnlyNodes  *int64
	Priority       *int64
}
