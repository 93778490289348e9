// Package scheduler runs periodic maintenance: pruning expired rate-limit
// windows and sweeping downloads that a crashed flow left behind.
package scheduler

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

type pruner interface {
	Prune() int
}

type Scheduler struct {
	cron        *cron.Cron
	limiter     pruner
	downloadDir string
}

func New(limiter pruner, downloadDir string) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		limiter:     limiter,
		downloadDir: downloadDir,
	}
}

func (s *Scheduler) Start() error {
	// Hourly: forget rate-limit windows that already expired.
	if _, err := s.cron.AddFunc("@hourly", func() {
		if n := s.limiter.Prune(); n > 0 {
			log.Printf("pruned %d expired rate-limit windows", n)
		}
	}); err != nil {
		return err
	}

	// Daily: sweep stale downloads. Flows delete their own files; anything
	// older than a day is an orphan.
	if _, err := s.cron.AddFunc("@daily", func() {
		s.sweepDownloads()
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("maintenance scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("maintenance scheduler stopped")
}

func (s *Scheduler) sweepDownloads() {
	entries, err := os.ReadDir(s.downloadDir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.downloadDir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("failed to sweep %s: %v", path, err)
		}
	}
}
