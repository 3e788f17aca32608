package client

import (
	"bidding-app/pkg/logger"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CatalogRefresher periodically asks for a fresh catalog. A zero interval
// disables it.
type CatalogRefresher struct {
	cron     *cron.Cron
	interval time.Duration
	refresh  func()
	log      logger.Logger
}

func NewCatalogRefresher(interval time.Duration, refresh func(), log logger.Logger) *CatalogRefresher {
	return &CatalogRefresher{
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
		refresh:  refresh,
		log:      log,
	}
}

func (r *CatalogRefresher) Enabled() bool {
	return r.interval > 0
}

func (r *CatalogRefresher) Start() error {
	if !r.Enabled() {
		return nil
	}

	r.log.Info("Starting catalog refresher", "interval", r.interval.String())

	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), r.refresh)
	if err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}

	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running refresh to return.
func (r *CatalogRefresher) Stop() {
	if !r.Enabled() {
		return
	}
	r.log.Info("Stopping catalog refresher")
	<-r.cron.Stop().Done()
}
