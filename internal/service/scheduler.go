package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chatwarden/internal/biz/repo"
	"chatwarden/internal/biz/usecase"
)

const (
	staleMessageAge = time.Hour
	prunePeriod     = 6 * time.Hour
	pruneWindows    = 24 // ledger entries older than this many cooldowns are dropped
)

// CheckScheduler drives the periodic trigger and the cleanup passes.
type CheckScheduler struct {
	mod      *ModeratorService
	bufferUC *usecase.BufferUsecase
	ledger   repo.LedgerRepo

	interval time.Duration
	cooldown time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCheckScheduler creates a scheduler with the given periodic interval.
func NewCheckScheduler(
	mod *ModeratorService,
	bufferUC *usecase.BufferUsecase,
	ledger repo.LedgerRepo,
	interval time.Duration,
	cooldown time.Duration,
) *CheckScheduler {
	return &CheckScheduler{
		mod:      mod,
		bufferUC: bufferUC,
		ledger:   ledger,
		interval: interval,
		cooldown: cooldown,
	}
}

// Start starts the scheduler loops.
func (s *CheckScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.checkLoop()
	go s.cleanupLoop()

	fmt.Printf("[Scheduler] Started with interval %v\n", s.interval)
}

// Stop stops the scheduler and waits for the loops to exit.
func (s *CheckScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

// checkLoop runs the periodic trigger pass: trim oversized buffers, then
// process every stale group with buffered messages.
func (s *CheckScheduler) checkLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mod.periodicPass(s.ctx)
			s.bufferUC.DropOlderThan(time.Now().Add(-staleMessageAge).Unix())
		}
	}
}

// cleanupLoop prunes ledger entries far outside the cooldown window.
func (s *CheckScheduler) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			before := time.Now().Add(-time.Duration(pruneWindows) * s.cooldown)
			count, err := s.ledger.Prune(s.ctx, before)
			if err != nil {
				fmt.Printf("[Scheduler] Ledger prune error: %v\n", err)
				continue
			}
			if count > 0 {
				fmt.Printf("[Scheduler] Pruned %d expired ledger entries\n", count)
			}
		}
	}
}
