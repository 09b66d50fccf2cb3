package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	checkPermissionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/check_permission"
	createAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/create_appointment"
	getAppointmentHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_appointment"
	getAvailableActionsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_available_actions"
	getHistoryHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_history"
	getUserAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_user_appointments"
	getWorkshopAppointmentsHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/get_workshop_appointments"
	requestTransitionHandler "github.com/m04kA/SMC-AppointmentService/internal/api/handlers/request_transition"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/api/ws"
	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/events/dispatch"
	"github.com/m04kA/SMC-AppointmentService/internal/events/registry"
	"github.com/m04kA/SMC-AppointmentService/internal/events/router"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	staffServiceClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/staffservice"
	appointmentsService "github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	createAppointmentUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
	requestTransitionUC "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_transition"
	"github.com/m04kA/SMC-AppointmentService/internal/workflow/permissions"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-AppointmentService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем интеграционного клиента
	staffClient := staffServiceClient.NewClient(
		cfg.StaffService.URL,
		time.Duration(cfg.StaffService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration client initialized (StaffService=%s timeout=%ds)",
		cfg.StaffService.URL, cfg.StaffService.Timeout)

	// Инициализируем репозиторий и transaction manager (с метриками или без)
	var appointmentRepository *apptRepo.Repository

	type TxManager interface {
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		appointmentRepository = apptRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		appointmentRepository = apptRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Политика клиентских действий
	policy := permissions.NewPolicy(permissions.Config{
		RescheduleMinHours: cfg.Workflow.RescheduleMinHours,
		CancelMinHours:     cfg.Workflow.CancelMinHours,
		MaxRescheduleCount: cfg.Workflow.MaxRescheduleCount,
	})

	// Realtime-инфраструктура: реестр подключений, маршрутизатор, диспетчер
	connRegistry := registry.New()

	dedupWindow := time.Duration(cfg.Notifications.DedupWindowMinutes) * time.Minute
	notificationRouter := router.New(router.Config{
		QuietHoursStart:      types.TimeString(cfg.Notifications.QuietHoursStart),
		QuietHoursEnd:        types.TimeString(cfg.Notifications.QuietHoursEnd),
		PaymentPushThreshold: cfg.Notifications.PaymentPushThreshold,
		DedupWindow:          dedupWindow,
	}, router.NewMemoryDedupStore(dedupWindow), log)

	var dispatchMetrics dispatch.MetricsRecorder
	var transitionMetrics requestTransitionUC.MetricsRecorder
	var wsMetrics ws.MetricsRecorder
	if cfg.Metrics.Enabled {
		dispatchMetrics = metricsCollector
		transitionMetrics = metricsCollector
		wsMetrics = metricsCollector
	} else {
		dispatchMetrics = dispatch.NopMetrics{}
		transitionMetrics = requestTransitionUC.NopMetrics{}
		wsMetrics = ws.NopMetrics{}
	}

	dispatcher := dispatch.New(connRegistry, notificationRouter, dispatchMetrics, log)

	// Инициализируем сервис и use cases
	appointmentSvc := appointmentsService.NewService(appointmentRepository, policy, log)

	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		appointmentRepository,
		staffClient,
		txMgr,
		dispatcher,
		log,
	)

	requestTransitionUseCase := requestTransitionUC.NewUseCase(
		appointmentRepository,
		policy,
		txMgr,
		dispatcher,
		transitionMetrics,
		cfg.Workflow.ConflictRetries,
		log,
	)

	// Инициализируем handlers
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	requestTransition := requestTransitionHandler.NewHandler(requestTransitionUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentSvc, log)
	getAvailableActions := getAvailableActionsHandler.NewHandler(appointmentSvc, log)
	checkPermission := checkPermissionHandler.NewHandler(appointmentSvc, log)
	getUserAppointments := getUserAppointmentsHandler.NewHandler(appointmentSvc, log)
	getWorkshopAppointments := getWorkshopAppointmentsHandler.NewHandler(appointmentSvc, log)
	getHistory := getHistoryHandler.NewHandler(appointmentSvc, log)

	wsGateway := ws.NewGateway(connRegistry, appointmentSvc, wsMetrics, ws.Config{
		HeartbeatInterval: time.Duration(cfg.WebSocket.HeartbeatSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.WebSocket.WriteTimeoutSeconds) * time.Second,
	}, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// WebSocket-шлюз (аутентификация, без метрик HTTP: upgrade не совместим
	// с обёрткой ResponseWriter)
	wsRouter := r.PathPrefix("/ws").Subrouter()
	wsRouter.Use(middleware.Auth)
	wsRouter.HandleFunc("", wsGateway.Handle).Methods(http.MethodGet)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		api.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")
	}

	// Все маршруты требуют заголовков идентификации
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Записи на обслуживание ---
	// Создание записи
	protected.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)

	// Записи мастерской (регистрируем до параметризованного маршрута)
	protected.HandleFunc("/workshop/appointments", getWorkshopAppointments.Handle).Methods(http.MethodGet)

	// Получение записи по ID
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)

	// Переход статуса
	protected.HandleFunc("/appointments/{appointmentId}/status", requestTransition.Handle).Methods(http.MethodPatch)

	// Доступные переходы и действия
	protected.HandleFunc("/appointments/{appointmentId}/actions", getAvailableActions.Handle).Methods(http.MethodGet)

	// Проверка одного действия
	protected.HandleFunc("/appointments/{appointmentId}/permissions", checkPermission.Handle).Methods(http.MethodGet)

	// Журнал статусов записи
	protected.HandleFunc("/appointments/{appointmentId}/history", getHistory.Handle).Methods(http.MethodGet)

	// Записи пользователя
	protected.HandleFunc("/users/{userId}/appointments", getUserAppointments.Handle).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	// Дожидаемся доставки накопленных событий
	dispatcher.Close()
	log.Info("Event dispatcher drained")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
