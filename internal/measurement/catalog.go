package measurement

import (
	"slices"
	"strings"
)

// ID names one observable time series exposed by the control plane.
type ID string

// Host-level measurements, requested one by one for the primary.
const (
	CacheBytesRead          ID = "CACHE_BYTES_READ_INTO"
	CacheBytesWritten       ID = "CACHE_BYTES_WRITTEN_FROM"
	CacheUsed               ID = "CACHE_USED_BYTES"
	CacheDirty              ID = "CACHE_DIRTY_BYTES"
	TicketsAvailableReads   ID = "TICKETS_AVAILABLE_READS"
	TicketsAvailableWrites  ID = "TICKETS_AVAILABLE_WRITE"
	QueuedReaders           ID = "GLOBAL_LOCK_CURRENT_QUEUE_READERS"
	QueuedWriters           ID = "GLOBAL_LOCK_CURRENT_QUEUE_WRITERS"
	DBStorage               ID = "DB_STORAGE_TOTAL"
	DBDataSize              ID = "DB_DATA_SIZE_TOTAL"
	TargetingPerReturned    ID = "QUERY_TARGETING_SCANNED_PER_RETURNED"
	TargetingObjectsPerRetd ID = "QUERY_TARGETING_SCANNED_OBJECTS_PER_RETURNED"
	NetworkBytesIn          ID = "NETWORK_BYTES_IN"
	NetworkBytesOut         ID = "NETWORK_BYTES_OUT"
)

// Disk-partition measurements, returned as one batch per host.
const (
	DiskIOPSRead        ID = "DISK_PARTITION_IOPS_READ"
	DiskIOPSReadMax     ID = "MAX_DISK_PARTITION_IOPS_READ"
	DiskIOPSWrite       ID = "DISK_PARTITION_IOPS_WRITE"
	DiskIOPSWriteMax    ID = "MAX_DISK_PARTITION_IOPS_WRITE"
	DiskLatencyRead     ID = "DISK_PARTITION_LATENCY_READ"
	DiskLatencyReadMax  ID = "MAX_DISK_PARTITION_LATENCY_READ"
	DiskLatencyWrite    ID = "DISK_PARTITION_LATENCY_WRITE"
	DiskLatencyWriteMax ID = "MAX_DISK_PARTITION_LATENCY_WRITE"
	DiskUtilization     ID = "DISK_PARTITION_UTILIZATION"
	DiskUtilizationMax  ID = "MAX_DISK_PARTITION_UTILIZATION"
)

// Per-database measurements folded into namespace counts.
const (
	DatabaseViewCount       ID = "DATABASE_VIEW_COUNT"
	DatabaseObjectCount     ID = "DATABASE_OBJECT_COUNT"
	DatabaseIndexCount      ID = "DATABASE_INDEX_COUNT"
	DatabaseCollectionCount ID = "DATABASE_COLLECTION_COUNT"
	DatabaseDataSize        ID = "DATABASE_DATA_SIZE"
)

var (
	hostCatalog = [...]ID{
		CacheBytesRead,
		CacheBytesWritten,
		CacheUsed,
		CacheDirty,
		TicketsAvailableReads,
		TicketsAvailableWrites,
		QueuedReaders,
		QueuedWriters,
		DBStorage,
		DBDataSize,
		TargetingPerReturned,
		TargetingObjectsPerRetd,
		NetworkBytesIn,
		NetworkBytesOut,
	}

	diskCatalog = [...]ID{
		DiskIOPSRead,
		DiskIOPSReadMax,
		DiskIOPSWrite,
		DiskIOPSWriteMax,
		DiskLatencyRead,
		DiskLatencyReadMax,
		DiskLatencyWrite,
		DiskLatencyWriteMax,
		DiskUtilization,
		DiskUtilizationMax,
	}

	namespaceCatalog = [...]ID{
		DatabaseViewCount,
		DatabaseObjectCount,
		DatabaseIndexCount,
		DatabaseCollectionCount,
		DatabaseDataSize,
	}
)

// HostCatalog returns the host-level identifiers in request order.
func HostCatalog() []ID { return slices.Clone(hostCatalog[:]) }

// DiskCatalog returns the disk-partition identifiers in record order.
func DiskCatalog() []ID { return slices.Clone(diskCatalog[:]) }

// NamespaceCatalog returns the per-database identifiers that feed namespace counts.
func NamespaceCatalog() []ID { return slices.Clone(namespaceCatalog[:]) }

// IsMax reports whether the series is itself a maximum and should be reduced by Max rather than Mean.
func (id ID) IsMax() bool {
	return strings.HasPrefix(string(id), "MAX_")
}

// Reduce collapses a summary into the scalar written to reports.
func (id ID) Reduce(s Stats) float64 {
	if id.IsMax() {
		return s.Max
	}

	return s.Mean
}

func (id ID) String() string { return string(id) }
