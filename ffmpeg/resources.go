package ffmpeg

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// Thresholds are the minimum free resources required to start a transcode.
type Thresholds struct {
	IdleCPU  float64 // percentage points of idle CPU required
	FreeMem  int64   // bytes
	FreeDisk int64   // bytes
}

// CheckResources verifies that the system has enough free resources to start a
// new transcode. Probe failures are logged but never block a job.
func CheckResources(thr Thresholds, dir string, log *logrus.Logger) error {
	// CPU
	p, err := cpu.Percent(time.Second, false)
	if err != nil {
		log.WithError(err).Warn("could not get CPU usage")
	} else if len(p) > 0 && p[0] > (100.0-thr.IdleCPU) {
		return fmt.Errorf("not enough idle CPU. Current usage: %.2f%%, Idle threshold: %.2f%%", p[0], thr.IdleCPU)
	}

	// Memory
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.WithError(err).Warn("could not get memory usage")
	} else if vm.Available < uint64(thr.FreeMem) {
		return fmt.Errorf("not enough free memory. Available: %d, Required: %d", vm.Available, thr.FreeMem)
	}

	// Disk
	d, err := disk.Usage(dir)
	if err != nil {
		log.WithError(err).WithField("dir", dir).Warn("could not get disk usage")
	} else if d.Free < uint64(thr.FreeDisk) {
		return fmt.Errorf("not enough free disk space. Available: %d, Required: %d", d.Free, thr.FreeDisk)
	}
	return nil
}
