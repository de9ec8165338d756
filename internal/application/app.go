package application

import (
	"context"
	"fmt"

	"eventbus/internal/application/common"
	"eventbus/internal/application/repo"
	"eventbus/internal/application/service"
	use_cases "eventbus/internal/application/use-cases"
	"eventbus/internal/controllers/cron"
	"eventbus/internal/controllers/handler"
	"eventbus/internal/transport/push"
	"eventbus/pkg/config"
	"eventbus/pkg/db"
	"eventbus/pkg/httpclient"
	"eventbus/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type App struct {
	ctx            context.Context
	conf           *config.Config
	logger         *zap.SugaredLogger
	postgres       *db.Postgres
	httpServer     *fiber.App
	cronController *cron.Controller
}

func NewApp(
	ctx context.Context,
	conf *config.Config,
	logger *zap.SugaredLogger,
	postgres *db.Postgres,
	httpServer *fiber.App,
	m *metrics.Metrics) *App {
	//Логируем версию приложения
	logger.Infof("Запуск Event Bus версии: %s", common.Version)

	store := repo.NewRepo(postgres, logger)
	tx := repo.NewTransactions(store, postgres, logger)

	callbackClient := httpclient.NewClient(conf.HTTPClient)
	sender := push.NewHTTPSender(callbackClient, logger, m)

	srv := service.NewService(store, tx, sender, logger, &conf.Bus, &conf.Dispatcher, m)
	uc := use_cases.NewUseCase(srv, logger, conf)
	h := handler.NewBusHandler(uc, logger)
	r := handler.NewRouter(h, httpServer, conf, logger)

	// Инициализация cron контроллера
	cronController := cron.NewController(ctx, logger)
	if err := cronController.RegisterRetentionJob(uc, conf.Retention); err != nil {
		logger.Fatalf("не удалось зарегистрировать cron задачу: %v", err)
	}
	cronController.Start()

	go uc.RunDispatcher(ctx)

	r.RegisterRouter()

	return &App{
		ctx:            ctx,
		conf:           conf,
		logger:         logger,
		postgres:       postgres,
		httpServer:     httpServer,
		cronController: cronController,
	}
}

func (a *App) Run() error {
	return a.httpServer.Listen(fmt.Sprintf(":%s", a.conf.Server.Port))
}

func (a *App) Shutdown() error {
	// Останавливаем cron задачи
	if a.cronController != nil {
		a.cronController.Stop()
	}
	return a.httpServer.Shutdown()
}
