// Package metrics samples the resource usage of the running report process.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Collector reports uptime, CPU and memory of the current process.
type Collector struct {
	startTime time.Time
	pid       int32
}

// Usage - one resource sample
type Usage struct {
	Uptime    time.Duration
	CPU       float64
	MemoryRSS uint64
}

// NewCollector creates a Collector for the current process, started at startTime.
func NewCollector(startTime time.Time) *Collector {
	return &Collector{startTime: startTime, pid: int32(os.Getpid())} // nolint: gosec
}

// Uptime returns the time elapsed since startTime.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// UsageCPU returns the CPU percentage used by the process since it started.
func (c *Collector) UsageCPU(ctx context.Context) (float64, error) {
	p, err := process.NewProcessWithContext(ctx, c.pid)
	if err != nil {
		return 0, fmt.Errorf("NewProcessWithContext: %w", err)
	}

	usage, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("CPUPercentWithContext: %w", err)
	}

	return usage, nil
}

// MemoryRSS returns the resident set size of the process in bytes.
func (c *Collector) MemoryRSS(ctx context.Context) (uint64, error) {
	p, err := process.NewProcessWithContext(ctx, c.pid)
	if err != nil {
		return 0, fmt.Errorf("NewProcessWithContext: %w", err)
	}

	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("MemoryInfoWithContext: %w", err)
	}

	return mem.RSS, nil
}

// Sample collects every reading. A failing reading is left at zero and its error joined into the result.
func (c *Collector) Sample(ctx context.Context) (Usage, error) {
	u := Usage{Uptime: c.Uptime()}

	var cpuErr, memErr error
	u.CPU, cpuErr = c.UsageCPU(ctx)
	u.MemoryRSS, memErr = c.MemoryRSS(ctx)

	return u, errors.Join(cpuErr, memErr)
}
