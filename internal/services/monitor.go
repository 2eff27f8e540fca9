package services

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// SystemMonitor logs process host resource usage after a pipeline run, so
// operators can see what a batch costs without a metrics stack.
type SystemMonitor struct {
	logger *logrus.Logger
}

func NewSystemMonitor(logger *logrus.Logger) *SystemMonitor {
	return &SystemMonitor{logger: logger}
}

// LogUsage samples CPU and memory and logs them. Sampling failures are logged
// and swallowed; monitoring never affects the run outcome.
func (m *SystemMonitor) LogUsage(ctx context.Context) {
	fields := logrus.Fields{}

	if cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false); err == nil && len(cpuPercent) > 0 {
		fields["cpu_pct"] = cpuPercent[0]
	} else if err != nil {
		m.logger.WithError(err).Debug("Could not sample CPU usage")
	}

	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields["mem_used_pct"] = memInfo.UsedPercent
		fields["mem_used_mb"] = memInfo.Used / (1024 * 1024)
	} else {
		m.logger.WithError(err).Debug("Could not sample memory usage")
	}

	if len(fields) > 0 {
		m.logger.WithFields(fields).Info("Post-run resource usage")
	}
}
