package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"carwash-app/wash-service/internal/config"
	"carwash-app/wash-service/internal/handler"
	"carwash-app/wash-service/internal/repository"
	"carwash-app/wash-service/internal/services"
	"carwash-app/wash-service/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Подключение к MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Mongo connection failed:", err)
	}

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	db := mongoClient.Database("carwash_service")

	// Redis: кэш справочника пакетов + шина событий
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return redisClient.Close()
	})

	// Инициализация слоев
	customerRepo := repository.NewCustomerRepository(db)
	washLogRepo := repository.NewWashLogRepository(db)
	packageRepo := repository.NewPackageRepository(db, redisClient)

	if err := utils.SeedPackages(ctx, packageRepo); err != nil {
		log.Fatal("Package seed failed:", err)
	}

	// Создание сервисов
	eventBus := utils.NewEventBus(redisClient)
	smsClient := utils.NewSMSClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.SMSFrom)

	subscriptionService := services.NewSubscriptionService(customerRepo)
	washLogService := services.NewWashLogService(washLogRepo, customerRepo, packageRepo, subscriptionService, smsClient, eventBus)
	agendaService := services.NewAgendaService(customerRepo, washLogRepo, packageRepo)

	washHandler := handler.NewWashHandler(subscriptionService, washLogService, agendaService, packageRepo)

	// Запуск фоновых задач
	notifier := services.NewNotifier(subscriptionService, eventBus)
	go notifier.Start(ctx)
	utils.StartScheduler(ctx, subscriptionService)

	// Инициализация маршрутизатора
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://host.docker.internal:8007"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret)
	authMiddleware := utils.AuthMiddleware(jwtUtil)

	api := router.Group("/api/wash", authMiddleware)
	{
		api.GET("/packages", washHandler.GetPackages)
		api.POST("/complete", washHandler.CompleteWash)
		api.POST("/cancel/:logId", washHandler.CancelWash)

		customers := api.Group("/customers/:id")
		{
			customers.POST("/vehicles/:vehicleId/start-package", washHandler.StartPackage)
			customers.GET("/counts", washHandler.GetCounts)
			customers.GET("/agenda", washHandler.GetAgenda)
			customers.GET("/history", washHandler.GetWashHistory)
		}

		admin := api.Group("/admin", utils.RequireRole("admin"))
		{
			admin.POST("/auto-renew", washHandler.RunAutoRenew)
			admin.PUT("/customers/:id/window", washHandler.AdminOverrideWindow)
		}
	}

	// Настройка HTTP сервера
	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Println("Wash service running on", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	// Ожидание сигналов завершения
	select {}
}
