/*
scheduler.go - Scheduled expiry risk scan

PURPOSE:

	Periodically classifies every active occupation against today and
	publishes one alert per occupation in the extension window or about to
	terminate. Nothing is persisted: the scan is a pure read.

DESIGN:
  - robfig/cron drives the schedule (standard 5-field spec)
  - Each run sets the per-class gauge and observes the scan duration
  - Alerts go to the event bus; subscribers log them (events package)
  - POST /api/alerts/scan runs the same scan on demand

CONFIGURATION:
  - scheduler.risk_scan_cron: when to scan (default: "0 7 * * *")
  - scheduler.enabled: whether Start schedules anything

USAGE:

	scanner, err := NewRiskScanScheduler(svc, bus, cfg.Scheduler.RiskScanCron)
	scanner.Start()
	// ... later
	scanner.Stop()

SEE ALSO:
  - tempcontract/risk.go: classification
  - events/subscribers.go: alert consumers
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/events"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/metrics"
	"github.com/warp/slot-engine/service"
	"github.com/warp/slot-engine/tempcontract"
)

// ScanRun summarizes the last completed scan.
type ScanRun struct {
	At       time.Time
	Alerts   int
	ByClass  map[tempcontract.RiskClass]int
	Duration time.Duration
}

// RiskScanScheduler runs the risk scan on a cron schedule.
type RiskScanScheduler struct {
	Service   *service.Service
	Publisher events.Publisher
	Spec      string
	Enabled   bool

	cron    *cron.Cron
	mu      sync.Mutex
	started bool
	last    *ScanRun
}

// NewRiskScanScheduler validates spec and registers the scan job. The
// scheduler is enabled; set Enabled to false to make Start a no-op.
func NewRiskScanScheduler(svc *service.Service, pub events.Publisher, spec string) (*RiskScanScheduler, error) {
	if pub == nil {
		pub = events.Discard{}
	}
	rs := &RiskScanScheduler{
		Service:   svc,
		Publisher: pub,
		Spec:      spec,
		Enabled:   true,
		cron:      cron.New(),
	}
	if _, err := rs.cron.AddFunc(spec, rs.scheduledRun); err != nil {
		return nil, fmt.Errorf("invalid risk scan schedule %q: %w", spec, err)
	}
	return rs, nil
}

// Start begins the scheduler.
func (rs *RiskScanScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Info("[Scheduler] Disabled, not starting")
		return
	}
	if rs.started {
		return
	}
	rs.cron.Start()
	rs.started = true
	log.WithField("spec", rs.Spec).Info("[Scheduler] Risk scan started")
}

// Stop stops the scheduler and waits for a running scan to finish. The wait
// happens outside rs.mu: a running scan takes it to record its result.
func (rs *RiskScanScheduler) Stop() {
	rs.mu.Lock()
	if !rs.started {
		rs.mu.Unlock()
		return
	}
	rs.started = false
	c := rs.cron
	rs.mu.Unlock()

	<-c.Stop().Done()
	log.Info("[Scheduler] Stopped")
}

// LastRun returns the last completed scan, or nil before the first.
func (rs *RiskScanScheduler) LastRun() *ScanRun {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.last == nil {
		return nil
	}
	run := *rs.last
	return &run
}

func (rs *RiskScanScheduler) scheduledRun() {
	if _, err := rs.RunOnce(context.Background()); err != nil {
		log.WithField(logging.ErrorTypeField, logging.ErrorTypeScheduler).WithError(err).Error("[Scheduler] Risk scan failed")
	}
}

// RunOnce scans against the service clock, updates metrics and publishes
// one alert per flagged occupation.
func (rs *RiskScanScheduler) RunOnce(ctx context.Context) ([]tempcontract.Alert, error) {
	started := time.Now()
	today := rs.Service.Today()

	alerts, err := rs.Service.RiskAlerts(ctx, today)
	if err != nil {
		return nil, err
	}

	byClass := map[tempcontract.RiskClass]int{
		tempcontract.RiskExtensionWindow:     0,
		tempcontract.RiskTerminationImminent: 0,
	}
	for _, a := range alerts {
		byClass[a.Class]++
		rs.Publisher.Publish(events.RiskAlertTopic, events.NewRiskAlert(a))
	}
	for class, n := range byClass {
		metrics.RiskAlertsGauge.WithLabelValues(string(class)).Set(float64(n))
	}

	elapsed := time.Since(started)
	metrics.RiskScanDuration.Observe(elapsed.Seconds())

	rs.mu.Lock()
	rs.last = &ScanRun{At: started, Alerts: len(alerts), ByClass: byClass, Duration: elapsed}
	rs.mu.Unlock()

	log.WithFields(log.Fields{
		"today":                today.String(),
		"alerts":               len(alerts),
		"extension_window":     byClass[tempcontract.RiskExtensionWindow],
		"termination_imminent": byClass[tempcontract.RiskTerminationImminent],
	}).Info("[Scheduler] Risk scan completed")
	return alerts, nil
}
