package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linkdive/linkdive/internal/config"
	"github.com/linkdive/linkdive/internal/domain"
	"github.com/linkdive/linkdive/internal/logger"
	"github.com/linkdive/linkdive/internal/metrics"
	"github.com/linkdive/linkdive/internal/service"
)

// Runner executes the work a task stands for.
type Runner interface {
	RunAnalysis(ctx context.Context, campaignID uint, depth service.AnalysisDepth) (*service.AnalysisResult, error)
	RunKeywordCheck(ctx context.Context, campaignID uint) (*service.AnalysisResult, error)
}

// CampaignSource lists and maintains monitored campaigns.
type CampaignSource interface {
	ListByStatus(ctx context.Context, status domain.MonitoringStatus) ([]domain.Campaign, error)
	UpdateMonitoringStatus(ctx context.Context, id uint, status domain.MonitoringStatus) error
}

type workItem struct {
	taskID string
	depth  service.AnalysisDepth
}

// Scheduler runs background tasks on a fixed worker pool and enqueues
// monitoring work for live campaigns on a periodic tick, gated by the
// configured monitoring window.
type Scheduler struct {
	cfg       *config.SchedulerConfig
	window    *Window
	registry  *TaskRegistry
	runner    Runner
	campaigns CampaignSource
	metrics   *metrics.Registry
	log       *logger.Logger

	queue chan workItem
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	now func() time.Time
}

// New creates a Scheduler. Call Start to launch workers and the tick loop.
func New(cfg *config.SchedulerConfig, window *Window, registry *TaskRegistry, runner Runner, campaigns CampaignSource, reg *metrics.Registry, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		window:    window,
		registry:  registry,
		runner:    runner,
		campaigns: campaigns,
		metrics:   reg,
		log:       log.WithField(logger.FieldComponent, "scheduler"),
		queue:     make(chan workItem, 256),
		stop:      make(chan struct{}),
		now:       time.Now,
	}
}

// Start launches the worker pool and the periodic tick loop.
func (s *Scheduler) Start() {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 3
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go s.tickLoop()

	s.log.Infof("scheduler started with %d workers, tick every %s", workers, s.cfg.TickInterval)
}

// Stop shuts the scheduler down, waiting for in-flight work until the
// context expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown timed out: %w", ctx.Err())
	}
}

// InFlight reports whether a pending or running task of the given kind
// exists for the campaign.
func (s *Scheduler) InFlight(kind domain.TaskKind, campaignID uint) bool {
	return s.registry.InFlight(kind, campaignID)
}

// Submit registers and enqueues a task. A full queue fails the task
// immediately rather than blocking the caller.
func (s *Scheduler) Submit(kind domain.TaskKind, campaignID uint, depth service.AnalysisDepth) (*domain.BackgroundTask, error) {
	task := s.registry.Create(kind, &campaignID)
	select {
	case s.queue <- workItem{taskID: task.ID, depth: depth}:
		return task, nil
	default:
		s.registry.Fail(task.ID, "task queue is full")
		return nil, errors.New("task queue is full")
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		// Short-timeout dequeue so a stop request is noticed promptly
		// even when the queue stays empty.
		select {
		case <-s.stop:
			return
		case item := <-s.queue:
			s.execute(item)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Scheduler) execute(item workItem) {
	task := s.registry.Get(item.taskID)
	if task == nil || task.Status != domain.TaskStatusPending {
		// Cancelled while queued.
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !s.registry.MarkRunning(item.taskID, cancel) {
		return
	}
	s.metrics.Inc(metrics.CounterTasksStarted)

	log := s.log.WithField(logger.FieldTaskID, item.taskID)
	if task.CampaignID != nil {
		log = log.WithField(logger.FieldCampaignID, *task.CampaignID)
	}
	started := s.now()

	var result *service.AnalysisResult
	var err error
	switch task.Kind {
	case domain.TaskKindKeywords:
		result, err = s.runner.RunKeywordCheck(ctx, *task.CampaignID)
	default:
		result, err = s.runner.RunAnalysis(ctx, *task.CampaignID, item.depth)
	}

	elapsed := s.now().Sub(started).Milliseconds()
	// A cancel while the work ran already recorded the terminal state;
	// the result of that work is discarded either way.
	current := s.registry.Get(item.taskID)
	switch {
	case current != nil && current.Status == domain.TaskStatusCancelled,
		err != nil && errors.Is(ctx.Err(), context.Canceled):
		s.registry.MarkCancelled(item.taskID)
		s.metrics.Inc(metrics.CounterTasksCancelled)
		log.WithField(logger.FieldDurationMs, elapsed).Info("task cancelled")
	case err != nil:
		s.registry.Fail(item.taskID, err.Error())
		s.metrics.Inc(metrics.CounterTasksFailed)
		log.WithError(err).WithField(logger.FieldDurationMs, elapsed).Error("task failed")
	default:
		s.registry.Complete(item.taskID, resultPayload(result))
		s.metrics.Inc(metrics.CounterTasksCompleted)
		log.WithField(logger.FieldDurationMs, elapsed).Info("task completed")
	}
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	interval := s.cfg.TickInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick(context.Background())
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick runs one scheduling pass: outside the monitoring window it only
// records the skip; inside, it enqueues monitoring and keyword work for
// every live campaign without the same work already in flight, and pauses
// campaigns whose launch has aged past the retention period.
func (s *Scheduler) Tick(ctx context.Context) {
	s.metrics.Mark(metrics.TimestampLastTick)

	now := s.now()
	if !s.window.Contains(now) {
		s.metrics.Inc(metrics.CounterWindowSkips)
		s.log.Debug("outside monitoring window, skipping tick")
		return
	}

	live, err := s.campaigns.ListByStatus(ctx, domain.MonitoringLive)
	if err != nil {
		s.log.WithError(err).Error("failed to list live campaigns")
		return
	}

	retention := time.Duration(s.cfg.RetentionDays) * 24 * time.Hour
	for _, campaign := range live {
		if s.cfg.RetentionDays > 0 && campaign.LaunchDate != nil && now.Sub(*campaign.LaunchDate) > retention {
			if err := s.campaigns.UpdateMonitoringStatus(ctx, campaign.ID, domain.MonitoringPaused); err != nil {
				s.log.WithError(err).WithField(logger.FieldCampaignID, campaign.ID).
					Warn("failed to auto-pause campaign")
				continue
			}
			s.metrics.Inc(metrics.CounterAutoPaused)
			s.log.WithField(logger.FieldCampaignID, campaign.ID).
				Infof("auto-paused campaign launched %s", campaign.LaunchDate.Format("2006-01-02"))
			continue
		}

		if !s.registry.InFlight(domain.TaskKindMonitoring, campaign.ID) {
			if _, err := s.Submit(domain.TaskKindMonitoring, campaign.ID, service.DepthStandard); err != nil {
				s.log.WithError(err).WithField(logger.FieldCampaignID, campaign.ID).
					Warn("failed to enqueue monitoring task")
			}
		}
		if campaign.HasKeywords() && !s.registry.InFlight(domain.TaskKindKeywords, campaign.ID) {
			if _, err := s.Submit(domain.TaskKindKeywords, campaign.ID, service.DepthStandard); err != nil {
				s.log.WithError(err).WithField(logger.FieldCampaignID, campaign.ID).
					Warn("failed to enqueue keyword task")
			}
		}
	}
}

func resultPayload(result *service.AnalysisResult) domain.TaskResult {
	if result == nil {
		return nil
	}
	payload := domain.TaskResult{
		"campaign_id":     result.CampaignID,
		"completed_steps": result.CompletedSteps,
	}
	if result.Depth != "" {
		payload["depth"] = result.Depth
	}
	payload["candidates_fetched"] = result.CandidatesFetched
	payload["new_records"] = result.NewRecords
	payload["verified_count"] = result.VerifiedCount
	payload["potential_count"] = result.PotentialCount
	payload["excluded_count"] = result.ExcludedCount
	if result.RankingsStored > 0 {
		payload["rankings_stored"] = result.RankingsStored
	}
	return payload
}
