package managers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalRegistry is the single-instance registry used when no redis address is configured.
type LocalRegistry struct {
	mu         sync.Mutex
	held       map[uint]struct{}
	instanceID string
	logger     *zap.Logger
}

func NewLocalRegistry(logger *zap.Logger) *LocalRegistry {
	return &LocalRegistry{
		held:       make(map[uint]struct{}),
		instanceID: uuid.New().String(),
		logger:     logger,
	}
}

func (r *LocalRegistry) InstanceID() string {
	return r.instanceID
}

func (r *LocalRegistry) Acquire(_ context.Context, interviewID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[interviewID]; ok {
		return false, nil
	}
	r.held[interviewID] = struct{}{}
	return true, nil
}

func (r *LocalRegistry) Refresh(_ context.Context, interviewID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[interviewID]; !ok {
		return ErrLeaseLost
	}
	return nil
}

func (r *LocalRegistry) Release(_ context.Context, interviewID uint) error {
	r.mu.Lock()
	delete(r.held, interviewID)
	r.mu.Unlock()
	return nil
}

// PublishCompleted only logs; there is nobody else to notify in a single instance.
func (r *LocalRegistry) PublishCompleted(_ context.Context, event CompletionEvent) error {
	r.logger.Info("interview completed",
		zap.Uint("interview_id", event.InterviewID),
		zap.String("recommendation", event.Recommendation),
		zap.Bool("should_proceed", event.ShouldProceed))
	return nil
}
