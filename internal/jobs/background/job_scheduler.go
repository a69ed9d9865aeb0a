package background

import (
	"context"
	"log"
	"sync"
	"time"

	"mailgrid/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages periodic maintenance jobs.
type JobScheduler struct {
	scheduler  gocron.Scheduler
	subService services.SubscriptionService
	jobs       map[string]gocron.Job
	mu         sync.RWMutex
}

func NewJobScheduler(subService services.SubscriptionService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		subService: subService,
		jobs:       make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// Subscription expiry sweep - every hour
	expiryJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.expireSubscriptions),
		gocron.WithName("subscription-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create expiry job: %v", err)
	} else {
		js.jobs["subscription-expiry"] = expiryJob
	}

	// Plan cache refresh - every 15 minutes
	cacheJob, err := js.scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(js.refreshPlanCache),
		gocron.WithName("plan-cache-refresh"),
	)
	if err != nil {
		log.Printf("Failed to create plan cache job: %v", err)
	} else {
		js.jobs["plan-cache"] = cacheJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

func (js *JobScheduler) expireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := js.subService.ExpireOverdue(ctx)
	if err != nil {
		log.Printf("Subscription expiry sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("Expired %d overdue subscriptions", expired)
	}
}

func (js *JobScheduler) refreshPlanCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := js.subService.RefreshPlanCache(ctx); err != nil {
		log.Printf("Plan cache refresh failed: %v", err)
	}
}
