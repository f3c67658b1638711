package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Handlers worker 端的邮件任务处理
type Handlers struct {
	App    string
	Sender Sender
	Log    *zap.Logger
}

func (h *Handlers) HandleVerify(ctx context.Context, t *asynq.Task) error {
	return h.handle(ctx, t, VerifyMessage)
}

func (h *Handlers) HandleReset(ctx context.Context, t *asynq.Task) error {
	return h.handle(ctx, t, ResetMessage)
}

func (h *Handlers) handle(ctx context.Context, t *asynq.Task, build func(string, Payload) (Message, error)) error {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.To == "" || p.Link == "" {
		// 坏载荷重试也没用
		return fmt.Errorf("%s: bad payload: %w", t.Type(), asynq.SkipRetry)
	}
	m, err := build(h.App, p)
	if err != nil {
		return fmt.Errorf("%s: render: %w", t.Type(), asynq.SkipRetry)
	}
	if err := h.Sender.Send(ctx, m); err != nil {
		h.Log.Warn("mail delivery failed", zap.String("type", t.Type()), zap.Error(err))
		return err
	}
	h.Log.Info("mail delivered", zap.String("type", t.Type()))
	return nil
}
