package worker

import (
	"github.com/paycore/internal/config"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/queue"

	"github.com/hibiken/asynq"
)

// deadLetterChunkSize bounds how many archived tasks one retry pass touches
// per inspector page.
const deadLetterChunkSize = 100

// DeadLetterService re-runs archived batch tasks. Batch tasks carry
// MaxRetry(0), so any failure lands them in the archived set; an operator
// triggers this after fixing the underlying condition.
type DeadLetterService struct {
	inspector *asynq.Inspector
}

// NewDeadLetterService builds the service over the queue's redis backend.
func NewDeadLetterService(cfg *config.QueueConfig) *DeadLetterService {
	return &DeadLetterService{
		inspector: asynq.NewInspector(queue.BuildRedisOpt(cfg)),
	}
}

// ArchivedCount reports how many tasks sit in the batch dead-letter set.
func (s *DeadLetterService) ArchivedCount() (int, error) {
	info, err := s.inspector.GetQueueInfo(queue.BatchQueue)
	if err != nil {
		return 0, err
	}
	return info.Archived, nil
}

// RetryArchived moves up to limit archived batch tasks back to pending, in
// chunks of at most deadLetterChunkSize. A limit of zero or less retries
// everything. Returns how many tasks were re-queued.
func (s *DeadLetterService) RetryArchived(limit int) (int, error) {
	retried := 0
	for {
		chunk := deadLetterChunkSize
		if limit > 0 && limit-retried < chunk {
			chunk = limit - retried
		}
		if chunk <= 0 {
			break
		}
		tasks, err := s.inspector.ListArchivedTasks(queue.BatchQueue, asynq.PageSize(chunk), asynq.Page(1))
		if err != nil {
			return retried, err
		}
		if len(tasks) == 0 {
			break
		}
		for _, task := range tasks {
			if err := s.inspector.RunTask(queue.BatchQueue, task.ID); err != nil {
				logger.Errorw("dead_letter_retry_failed",
					"task_id", task.ID,
					"task", task.Type,
					"error", err,
				)
				return retried, err
			}
			retried++
		}
		if len(tasks) < chunk {
			break
		}
	}
	logger.Infow("dead_letter_retried", "count", retried)
	return retried, nil
}

// DeleteArchived drops one archived task by id after manual resolution.
func (s *DeadLetterService) DeleteArchived(taskID string) error {
	return s.inspector.DeleteTask(queue.BatchQueue, taskID)
}
