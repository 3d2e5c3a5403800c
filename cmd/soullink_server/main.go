package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"soullink_server/internal/config"
	dao "soullink_server/internal/dao/mysql"
	myredis "soullink_server/internal/dao/redis"
	"soullink_server/internal/handler"
	"soullink_server/internal/http_server"
	"soullink_server/internal/infrastructure/logger"
	"soullink_server/internal/llm"
	"soullink_server/internal/service"
	"soullink_server/internal/service/chat"
	"soullink_server/internal/service/scheduler"
	"soullink_server/internal/service/task"
	"soullink_server/pkg/util/snowflake"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, "dev"); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化参数校验翻译器
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("翻译器初始化失败", zap.Error(err))
	}

	// 4. 初始化数据库
	repos := dao.Init()
	zap.L().Info("数据库初始化成功")

	// 5. 初始化 Redis
	cache := myredis.Init()
	zap.L().Info("Redis 初始化成功")

	// 6. 初始化雪花算法（消息 ID 分配）
	snowflake.Init()

	// 7. 初始化生成服务客户端
	generator := llm.NewClient(&conf.LLMConfig)
	zap.L().Info("生成服务客户端初始化成功")

	// 8. 初始化 Service 层 (依赖注入)
	services := service.NewServices(repos, cache, generator)
	zap.L().Info("Service 层初始化成功")

	// 9. 初始化实时扇出中心与事件代理
	hub := chat.NewHub(services.Session)
	hub.StartTypingSweeper()
	broker := chat.NewEventBroker(hub)
	if kafkaBroker, ok := broker.(*chat.KafkaBroker); ok {
		kafkaBroker.CreateTopic()
	}
	go broker.Start()
	zap.L().Info("实时扇出中心初始化成功",
		zap.String("message_mode", conf.KafkaConfig.MessageMode))

	// 10. 初始化任务注册表与执行器
	registry := task.NewRegistry()
	executor := task.NewExecutor(registry)

	// 11. 启动自动对话调度器
	sched := scheduler.NewFromConfig(scheduler.SchedulerSettings{
		PollInterval: conf.SchedulerConfig.PollInterval,
		ItemDelay:    conf.SchedulerConfig.ItemDelay,
		ClaimWindow:  conf.SchedulerConfig.ClaimWindow,
	}, repos, services.Match, registry, executor)
	sched.Start()

	// 12. 初始化并启动 HTTP 服务器
	handlers := handler.NewHandlers(services, hub, broker, sched, registry)
	engine := http_server.Init(handlers)
	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		if err := engine.Run(addr); err != nil {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()
	zap.L().Info("HTTP 服务器已启动",
		zap.String("host", conf.MainConfig.Host),
		zap.Int("port", conf.MainConfig.Port))

	// 13. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.L().Info("关闭服务器...")
	sched.Stop()
	executor.Close()
	broker.Close()
	hub.StopTypingSweeper()
	zap.L().Info("服务器已关闭")
}
