package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"learnsphere-backend/internal/models"
)

// Reclaimer deletes open attempts whose time budget plus grace period has
// elapsed without a submission. Deleting an open attempt frees its numeric
// slot: reclaimed attempts never count toward a learner's completed total.
type Reclaimer struct {
	attempts     AttemptStore
	defaultLimit time.Duration
	grace        time.Duration
}

func NewReclaimer(attempts AttemptStore, defaultLimit, grace time.Duration) *Reclaimer {
	return &Reclaimer{attempts: attempts, defaultLimit: defaultLimit, grace: grace}
}

// Sweep scans every open attempt and removes the abandoned ones. Returns the
// number reclaimed.
func (r *Reclaimer) Sweep(ctx context.Context, now time.Time) (int, error) {
	open, err := r.attempts.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	return r.reclaim(ctx, open, now)
}

// ReclaimFor applies the same predicate scoped to one (user, quiz) pair. The
// start path calls this so an expired attempt is cleared without waiting for
// the next background sweep.
func (r *Reclaimer) ReclaimFor(ctx context.Context, quizID, userID uuid.UUID, now time.Time) (int, error) {
	open, err := r.attempts.ListOpenByUserAndQuiz(ctx, quizID, userID)
	if err != nil {
		return 0, err
	}
	return r.reclaim(ctx, open, now)
}

func (r *Reclaimer) reclaim(ctx context.Context, open []models.OpenAttempt, now time.Time) (int, error) {
	reclaimed := 0
	for _, a := range open {
		if !r.expired(a, now) {
			continue
		}
		if err := r.attempts.Delete(ctx, a.AttemptID); err != nil {
			log.Printf("reclaimer: failed to delete attempt %s: %v", a.AttemptID, err)
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

// expired reports whether the attempt is past its effective time limit plus
// the grace period. Quizzes without an explicit limit fall back to the
// default budget.
func (r *Reclaimer) expired(a models.OpenAttempt, now time.Time) bool {
	limit := r.defaultLimit
	if a.TimeLimitMinutes != nil && *a.TimeLimitMinutes > 0 {
		limit = time.Duration(*a.TimeLimitMinutes) * time.Minute
	}
	return now.Sub(a.StartedAt) > limit+r.grace
}

// SweepScheduler runs the global sweep on a fixed interval, independent of
// request traffic.
type SweepScheduler struct {
	reclaimer *Reclaimer
	interval  time.Duration
	stopChan  chan struct{}
}

func NewSweepScheduler(reclaimer *Reclaimer, interval time.Duration) *SweepScheduler {
	return &SweepScheduler{
		reclaimer: reclaimer,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (s *SweepScheduler) Start() {
	go s.loop()
	log.Printf("Attempt sweep scheduler started (every %s)", s.interval)
}

func (s *SweepScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *SweepScheduler) loop() {
	// Run on startup as well as by interval.
	s.run()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.run()
		}
	}
}

func (s *SweepScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reclaimed, err := s.reclaimer.Sweep(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("attempt sweep: %v", err)
		return
	}
	if reclaimed > 0 {
		log.Printf("attempt sweep: reclaimed %d abandoned attempts", reclaimed)
	}
}
