package app

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/pkg/metrics"
)

// operator logs are kept for a year
const oprLogRetention = 365 * 24 * time.Hour

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedClearExpireData()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}
}

// RunScheduler runs the cron jobs until ctx is done and waits for running
// jobs to finish.
func (a *Application) RunScheduler(ctx context.Context) error {
	if a.sched == nil {
		a.initJob()
	}
	a.sched.Start()
	zap.L().Info("scheduler started", zap.Int("jobs", len(a.sched.Entries())))
	<-ctx.Done()
	<-a.sched.Stop().Done()
	zap.L().Info("scheduler stopped")
	return nil
}

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.ProcessCpuUse, int64(cpuuse*100)) // Store as percentage * 100
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.ProcessMemUse, int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: memory MB value fits in int64
	}
}

// SchedClearExpireData removes operator logs past retention and returns
// how many rows were deleted.
func (a *Application) SchedClearExpireData() int64 {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	res := a.gormDB.
		Where("opt_time < ?", time.Now().Add(-oprLogRetention)).
		Delete(&domain.SysOprLog{})
	if res.Error != nil {
		zap.L().Error("failed to clear expired operator logs", zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}
