package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"learnsphere-backend/internal/services"
)

const (
	popTimeout = 5 * time.Second
	maxRetries = 3
)

// Pool consumes achievement-check jobs queued after quiz submissions and
// reports them to the external achievement service. Everything here is
// best-effort: a job that keeps failing is dropped with a log line, never
// surfaced to the learner.
type Pool struct {
	redis        *redis.Client
	achievements *services.AchievementClient
	workerCount  int
	stopChan     chan struct{}
}

func NewPool(redisClient *redis.Client, achievements *services.AchievementClient, workerCount int) *Pool {
	return &Pool{
		redis:        redisClient,
		achievements: achievements,
		workerCount:  workerCount,
		stopChan:     make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.run(i)
	}
}

func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
		return
	default:
		close(p.stopChan)
	}
}

func (p *Pool) run(id int) {
	for {
		select {
		case <-p.stopChan:
			return
		default:
		}

		result, err := p.redis.BRPop(context.Background(), popTimeout, services.AchievementQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Printf("worker %d: queue pop failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job services.AchievementJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("worker %d: dropping malformed job: %v", id, err)
			continue
		}

		p.process(id, job)
	}
}

func (p *Pool) process(id int, job services.AchievementJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		unlocked, err := p.achievements.CheckQuizAchievements(ctx, job.UserID, job.QuizID, job.PercentageScore, job.Passed)
		if err == nil {
			if len(unlocked) > 0 {
				log.Printf("worker %d: unlocked %d achievements for user %s on quiz %s", id, len(unlocked), job.UserID, job.QuizID)
			}
			return
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	log.Printf("worker %d: achievement check failed for attempt %s after %d tries: %v", id, job.AttemptID, maxRetries, lastErr)
}
