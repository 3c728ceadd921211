package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartAutoCollectScheduler starts a cron-based scheduler that runs the
// collection phase on a fixed schedule and posts a summary to Slack.
// The schedule is a standard 5-field cron expression (minute hour
// day-of-month month day-of-week). Examples: "0 6 * * *" (daily 6am),
// "0 6 * * 1" (Mondays 6am).
func StartAutoCollectScheduler(cfg Config) {
	schedule := strings.TrimSpace(cfg.AutoCollectSchedule)
	if schedule == "" {
		log.Println("Auto-collect disabled (auto_collect_schedule not set)")
		return
	}
	if cfg.PortalURL == "" {
		log.Println("Auto-collect disabled: portal_url not set")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid auto_collect_schedule '%s': %v, auto-collect disabled", schedule, err)
		return
	}

	log.Printf("Auto-collect scheduled (cron: %s) from %s", schedule, cfg.PortalURL)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next auto-collect at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			if err := runPhase1(cfg); err != nil {
				log.Printf("Auto-collect error: %v", err)
				notifySlack(cfg, fmt.Sprintf("Complaint collection failed: %v", err))
				continue
			}
			notifySlack(cfg, fmt.Sprintf("Complaint collection complete, raw data at %s", cfg.ComplaintsFile()))
		}
	}()
}
