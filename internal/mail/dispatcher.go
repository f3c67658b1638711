package mail

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer *asynq.Client 的子集
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher 实现 identity.Mailer：只入队，真正发送在 worker
type Dispatcher struct {
	q   Enqueuer
	log *zap.Logger
}

func NewDispatcher(q Enqueuer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{q: q, log: log.Named("mail")}
}

func (d *Dispatcher) SendVerification(ctx context.Context, to, link string) error {
	t, err := NewVerifyTask(to, link)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, t)
}

func (d *Dispatcher) SendPasswordReset(ctx context.Context, to, link string) error {
	t, err := NewResetTask(to, link)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, t)
}

func (d *Dispatcher) enqueue(ctx context.Context, t *asynq.Task) error {
	info, err := d.q.EnqueueContext(ctx, t,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return err
	}
	d.log.Debug("mail enqueued", zap.String("type", t.Type()), zap.String("task_id", info.ID))
	return nil
}
