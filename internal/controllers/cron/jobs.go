package cron

import (
	"context"
	"sync/atomic"

	use_cases "eventbus/internal/application/use-cases"

	"go.uber.org/zap"
)

// RetentionJob - задача удаления событий с истёкшим expires_at.
// Доставки удаляются каскадом вместе с родительским событием,
// dead letter'ы живут ровно столько же.
type RetentionJob struct {
	usecase use_cases.UseCaser
	logger  *zap.SugaredLogger

	// замок от параллельных sweep'ов; publish/dispatch не блокируются
	running atomic.Bool
}

// NewRetentionJob создает задачу retention sweep
func NewRetentionJob(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *RetentionJob {
	return &RetentionJob{
		usecase: usecase,
		logger:  logger,
	}
}

// Run выполняет один retention sweep
func (j *RetentionJob) Run(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("retention sweep уже выполняется, пропускаем запуск")
		return
	}
	defer j.running.Store(false)

	j.logger.Info("Запуск retention sweep")

	defer func() {
		if r := recover(); r != nil {
			j.logger.Errorf("Паника при выполнении retention sweep: %v", r)
		}
	}()

	j.usecase.SweepExpiredEvents(ctx)
	j.logger.Info("Retention sweep завершён")
}
