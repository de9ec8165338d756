package cron

import (
	"context"
	"fmt"

	use_cases "eventbus/internal/application/use-cases"
	"eventbus/pkg/config"

	"go.uber.org/zap"
)

type Controller struct {
	scheduler *Scheduler
	logger    *zap.SugaredLogger
}

func NewController(ctx context.Context, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		scheduler: NewScheduler(ctx),
		logger:    logger,
	}
}

// Поддерживает два режима:
// 1. По расписанию (cron format): например, "0 3 * * *" - каждый день в 03:00
// 2. По интервалу: например, "@every 1h" - каждый час
func (c *Controller) RegisterRetentionJob(usecase use_cases.UseCaser, conf config.Retention) error {
	job := NewRetentionJob(usecase, c.logger)

	var spec string

	// Приоритет: если указан Schedule, используем его, иначе Interval
	if conf.Schedule != "" {
		spec = conf.Schedule
		c.logger.Infof("Регистрация retention sweep по расписанию: %s", spec)
	} else if conf.Interval != "" {
		spec = conf.Interval
		c.logger.Infof("Регистрация retention sweep по интервалу: %s", spec)
	} else {
		// По умолчанию: каждый час
		spec = "@every 1h"
		c.logger.Warnf("Расписание не указано, используется интервал по умолчанию: %s", spec)
	}

	entryID, err := c.scheduler.Add(spec, job)
	if err != nil {
		return fmt.Errorf("не удалось зарегистрировать retention sweep: %w", err)
	}

	c.logger.Infof("Retention sweep зарегистрирован с ID: %d, расписание: %s", entryID, spec)
	return nil
}

// Start запускает планировщик задач
func (c *Controller) Start() {
	c.logger.Info("Запуск планировщика cron задач")
	c.scheduler.Start()
}

// Stop останавливает планировщик задач
func (c *Controller) Stop() {
	c.logger.Info("Остановка планировщика cron задач")
	c.scheduler.Stop()
	c.logger.Info("Планировщик cron задач остановлен")
}
