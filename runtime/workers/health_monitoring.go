package workers

import (
	"context"
	"dot-catcher/contract"
	"dot-catcher/observability"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HealthMonitoringWorker)(nil)

// HealthMonitoringWorker samples the bridge's own process on every tick
// and stores the result in the stats exposed on /stats.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	stats          *observability.Stats
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, stats *observability.Stats,
	metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		stats:          stats,
		metricInterval: metricInterval,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			sample, err := sampleProcess(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.stats.SetProcess(sample)
			w.log.Debug("Self stats", "rss", sample.RSSBytes, "cpu", sample.CPUPercent, "status", sample.Status)
		}
	}
}

func sampleProcess(p *process.Process) (observability.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	return observability.ProcessStats{
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Status:     status,
		SampledAt:  time.Now().UTC(),
	}, nil
}
