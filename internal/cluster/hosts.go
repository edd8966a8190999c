package cluster

import (
	"log"
	"strings"

	"github.com/samber/lo"

	"github.com/mgmonteleone/AtlasFleetReport/internal/controlplane"
)

// aliasLen is how many characters of the cluster name the control plane keeps when it
// generates host aliases. Counted in runes.
const aliasLen = 23

// ResolveHosts filters a fleet-wide host list down to the hosts of this cluster. A host matches on
// its truncated alias or on its full cluster name; both arms are needed for names longer than aliasLen.
func (d Descriptor) ResolveHosts(hosts []controlplane.Host) []controlplane.Host {
	alias := truncatedAlias(d.Name)

	return lo.Filter(hosts, func(h controlplane.Host, _ int) bool {
		if h.ClusterAlias != "" && truncatedAlias(h.ClusterAlias) == alias {
			return true
		}

		return h.ClusterName != "" && strings.EqualFold(h.ClusterName, d.Name)
	})
}

// ResolvePrimary returns this cluster's primary. ok is false when no host currently holds the role,
// e.g. during an election. With several primaries the last one listed wins.
func (d Descriptor) ResolvePrimary(hosts []controlplane.Host) (primary controlplane.Host, ok bool) {
	primaries := lo.Filter(d.ResolveHosts(hosts), func(h controlplane.Host, _ int) bool {
		return h.IsPrimary()
	})

	switch len(primaries) {
	case 0:
		return controlplane.Host{}, false
	case 1:
	default:
		log.Printf("[WARN] cluster %s: %d hosts report the primary role, using %s",
			d.Name, len(primaries), primaries[len(primaries)-1].Addr())
	}

	return primaries[len(primaries)-1], true
}

func truncatedAlias(name string) string {
	runes := []rune(strings.ToLower(name))
	if len(runes) > aliasLen {
		runes = runes[:aliasLen]
	}

	return string(runes)
}
