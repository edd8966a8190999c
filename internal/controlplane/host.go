package controlplane

import (
	"fmt"
	"strings"
)

// Role is the replica-set role reported for a host.
type Role string

const (
	RolePrimary      Role = "REPLICA_PRIMARY"
	RoleSecondary    Role = "REPLICA_SECONDARY"
	RoleRecovering   Role = "RECOVERING"
	RoleShardMongos  Role = "SHARD_MONGOS"
	RoleShardConfig  Role = "SHARD_CONFIG"
	RoleNoData       Role = "NO_DATA"
	RoleUnknownState Role = ""
)

// Host - one mongod/mongos process of the fleet.
type Host struct {
	ID             string
	ProjectID      string
	Hostname       string
	Port           int
	Alias          string
	ReplicaSetName string
	Role           Role
	Version        string

	// ClusterAlias is the cluster prefix of the generated alias. The control plane lower-cases and
	// truncates long cluster names when generating it.
	ClusterAlias string
	// ClusterName is the untruncated cluster name when the API exposes it.
	ClusterName string
}

// Addr returns host:port.
func (h Host) Addr() string {
	return fmt.Sprintf("%s:%d", h.Hostname, h.Port)
}

// IsPrimary reports whether the host currently holds the primary role.
func (h Host) IsPrimary() bool {
	return h.Role == RolePrimary
}

// ClusterAliasFromHostname extracts the cluster prefix from an Atlas generated hostname alias,
// e.g. "cluster0-shard-00-01.abcde.mongodb.net" -> "cluster0".
func ClusterAliasFromHostname(alias string) string {
	name := alias
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "-shard-"); i >= 0 {
		name = name[:i]
	}

	return strings.ToLower(name)
}
