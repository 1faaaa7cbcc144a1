package coordinator

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
)

// Reaper 定期清扫超过期限的会话与审批单
type Reaper struct {
	service   *Service
	gate      *approval.Gate
	scheduler *gocron.Scheduler
	interval  string
}

// NewReaper 创建清扫器，interval 使用 gocron 的时长写法，例如 "1m"
func NewReaper(service *Service, gate *approval.Gate, interval string) *Reaper {
	return &Reaper{
		service:   service,
		gate:      gate,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
	}
}

// Start 启动后台清扫循环
func (r *Reaper) Start() error {
	if _, err := r.scheduler.Every(r.interval).Do(r.sweep); err != nil {
		return errors.Wrap(err, "failed to schedule the expiry sweep")
	}
	r.scheduler.StartAsync()
	log.Info().Str("interval", r.interval).Msg("Expiry reaper started")
	return nil
}

// Stop 停止清扫循环，正在执行的一轮会跑完
func (r *Reaper) Stop() {
	r.scheduler.Stop()
}

// Sweep 立即执行一轮清扫，返回过期的会话数量
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	expiredSessions, err := r.service.ExpireOverdueSessions(ctx)
	if err != nil {
		return 0, err
	}
	expiredApprovals := 0
	if r.gate != nil {
		expiredApprovals = r.gate.ExpireOverdue(ctx)
	}
	if expiredSessions > 0 || expiredApprovals > 0 {
		log.Info().
			Int("sessions", expiredSessions).
			Int("approvals", expiredApprovals).
			Msg("Expired overdue work")
	}
	return expiredSessions, nil
}

func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := r.Sweep(ctx); err != nil {
		log.Warn().Err(err).Msg("Expiry sweep failed")
	}
}
