package service

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"cineverse/internal/repo"
)

var orphanGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "accounts_orphaned_credentials",
	Help: "Credentials without a profile found by the last reconciliation scan",
})

func init() { prometheus.MustRegister(orphanGauge) }

// Reconciler 扫描注册第二步失败留下的孤儿凭证；只记录，不自动修复（用户登录后可补全资料）
type Reconciler struct {
	creds *repo.CredentialRepo
	log   *zap.Logger
	limit int
}

func NewReconciler(creds *repo.CredentialRepo, log *zap.Logger) *Reconciler {
	return &Reconciler{creds: creds, log: log.Named("reconcile"), limit: 500}
}

func (r *Reconciler) Scan(ctx context.Context) (int, error) {
	orphans, err := r.creds.ListOrphans(ctx, r.limit)
	if err != nil {
		return 0, err
	}
	for _, o := range orphans {
		r.log.Warn("credential without profile",
			zap.String("uid", o.ID), zap.Time("created_at", o.CreatedAt))
	}
	orphanGauge.Set(float64(len(orphans)))
	r.log.Info("reconciliation done", zap.Int("orphans", len(orphans)))
	return len(orphans), nil
}

// HandleTask asynq 定时任务入口
func (r *Reconciler) HandleTask(ctx context.Context, _ *asynq.Task) error {
	_, err := r.Scan(ctx)
	return err
}
