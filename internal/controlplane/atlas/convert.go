package atlas

import (
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/atlas/mongodbatlas"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
	"github.com/mgmonteleone/AtlasFleetReport/internal/measurement"
)

func convertCluster(raw *mongodbatlas.Cluster) controlplane.Cluster {
	c := controlplane.Cluster{
		ID:           raw.ID,
		Name:         raw.Name,
		ProjectID:    raw.GroupID,
		DiskSizeGB:   lo.FromPtr(raw.DiskSizeGB),
		NumShards:    lo.FromPtr(raw.NumShards),
		MajorVersion: raw.MongoDBMajorVersion,
		Version:      raw.MongoDBVersion,
		StateName:    raw.StateName,
	}

	if ps := raw.ProviderSettings; ps != nil {
		c.InstanceSize = ps.InstanceSizeName
		c.DiskIOPS = lo.FromPtr(ps.DiskIOPS)
		c.VolumeType = ps.VolumeType
	}

	c.ReplicationSpecs = lo.Map(raw.ReplicationSpecs, func(spec mongodbatlas.ReplicationSpec, _ int) controlplane.ReplicationSpec {
		regions := make(map[string]controlplane.RegionConfig, len(spec.RegionsConfig))
		for name, rc := range spec.RegionsConfig {
			regions[name] = controlplane.RegionConfig{
				ElectableNodes: rc.ElectableNodes,
				AnalyticsNodes: rc.AnalyticsNodes,
				ReadOnlyNodes:  rc.ReadOnlyNodes,
				Priority:       rc.Priority,
			}
		}

		return controlplane.ReplicationSpec{
			ID:            spec.ID,
			ZoneName:      spec.ZoneName,
			NumShards:     lo.FromPtr(spec.NumShards),
			RegionsConfig: regions,
		}
	})

	return c
}

func convertProcess(p *mongodbatlas.Process) controlplane.Host {
	alias := p.UserAlias
	if alias == "" {
		alias = p.Hostname
	}

	return controlplane.Host{
		ID:             p.ID,
		ProjectID:      p.GroupID,
		Hostname:       p.Hostname,
		Port:           p.Port,
		Alias:          p.UserAlias,
		ReplicaSetName: p.ReplicaSetName,
		Role:           controlplane.Role(p.TypeName),
		Version:        p.Version,
		ClusterAlias:   controlplane.ClusterAliasFromHostname(alias),
	}
}

// convertMeasurements summarizes every series of a response. Series without a single value are dropped.
func convertMeasurements(hostID string, pm *mongodbatlas.ProcessMeasurements) []measurement.Result {
	if pm == nil {
		return nil
	}

	results := make([]measurement.Result, 0, len(pm.Measurements))

	for _, m := range pm.Measurements {
		if m == nil {
			continue
		}

		points := make([]measurement.Point, 0, len(m.DataPoints))
		for _, dp := range m.DataPoints {
			if dp == nil {
				continue
			}

			points = append(points, measurement.Point{
				Timestamp: parseTime(dp.Timestamp),
				Value:     widen(dp.Value),
			})
		}

		if res, ok := measurement.NewResult(measurement.ID(m.Name), hostID, points); ok {
			results = append(results, res)
		}
	}

	return results
}

func convertProjects(raws []*mongodbatlas.Project, orgID string) []controlplane.Project {
	projects := make([]controlplane.Project, 0, len(raws))

	for _, p := range raws {
		if p == nil || (orgID != "" && p.OrgID != orgID) {
			continue
		}

		projects = append(projects, controlplane.Project{
			ID:           p.ID,
			Name:         p.Name,
			OrgID:        p.OrgID,
			Created:      parseTime(p.Created),
			ClusterCount: p.ClusterCount,
		})
	}

	return projects
}

func convertEvents(raws []*mongodbatlas.Event) []controlplane.Event {
	events := make([]controlplane.Event, 0, len(raws))

	for _, e := range raws {
		if e == nil {
			continue
		}

		events = append(events, controlplane.Event{
			ID:          e.ID,
			Type:        e.EventTypeName,
			ProjectID:   e.GroupID,
			ClusterName: e.ClusterName,
			Created:     parseTime(e.Created),
		})
	}

	return events
}

func createdSince(projects []controlplane.Project, since time.Time) []controlplane.Project {
	return lo.Filter(projects, func(p controlplane.Project, _ int) bool {
		return !p.Created.Before(since)
	})
}

func widen(v *float32) *float64 {
	if v == nil {
		return nil
	}

	f := float64(*v)

	return &f
}

// parseTime returns the zero time for malformed input.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
