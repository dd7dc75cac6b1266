package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const AchievementQueueKey = "queue:achievement-checks"

// AchievementJob is the payload queued after a submission commits.
type AchievementJob struct {
	UserID          uuid.UUID `json:"user_id"`
	QuizID          uuid.UUID `json:"quiz_id"`
	AttemptID       uuid.UUID `json:"attempt_id"`
	PercentageScore float64   `json:"percentage_score"`
	Passed          bool      `json:"passed"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

// AchievementQueue pushes achievement-check jobs onto the redis work queue
// consumed by the worker pool.
type AchievementQueue struct {
	redis *redis.Client
}

func NewAchievementQueue(redisClient *redis.Client) *AchievementQueue {
	return &AchievementQueue{redis: redisClient}
}

func (q *AchievementQueue) Enqueue(ctx context.Context, job AchievementJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.redis.LPush(ctx, AchievementQueueKey, string(payload)).Err()
}

// AchievementClient calls the external achievement service over HTTP.
type AchievementClient struct {
	baseURL string
	client  *http.Client
}

func NewAchievementClient(baseURL string) *AchievementClient {
	return &AchievementClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CheckQuizAchievements reports the attempt outcome and returns any newly
// unlocked achievement IDs.
func (c *AchievementClient) CheckQuizAchievements(ctx context.Context, userID, quizID uuid.UUID, percentage float64, passed bool) ([]string, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"user_id":          userID,
		"quiz_id":          quizID,
		"percentage_score": percentage,
		"passed":           passed,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/achievements/quiz-check", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("achievement service returned status %d", resp.StatusCode)
	}

	var out struct {
		AchievementIDs []string `json:"achievement_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.AchievementIDs, nil
}
