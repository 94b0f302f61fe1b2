package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"alimflow/internal/alert"
	"alimflow/internal/auth"
	"alimflow/internal/config"
	"alimflow/internal/contentgroup"
	"alimflow/internal/dashboard"
	"alimflow/internal/database"
	"alimflow/internal/event"
	"alimflow/internal/kakao"
	"alimflow/internal/message"
	"alimflow/internal/middleware"
	"alimflow/internal/scheduler"
	"alimflow/internal/variable"
	"alimflow/internal/workspace"
)

func main() {
	var configPath, region string
	var local bool
	flag.StringVar(&configPath, "conf", "/service/infra/alimflow", "parameter store key")
	flag.StringVar(&region, "region", "ap-northeast-2", "parameter store region")
	flag.BoolVar(&local, "local", false, "load config from .env instead of parameter store")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// 설정 로드
	var cfg *config.Config
	var err error
	if local {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.LoadFromParameterStore(region, configPath)
	}
	if err != nil {
		log.Panic(err)
	}

	// DB 연결
	dbo, err := database.CreateConnection(cfg.Repository)
	if err != nil {
		log.Fatalf("Repository Connection failed. %v", err)
	}
	log.Info("Successfully connected to the database.")

	sessionStore := session.New(session.Config{
		Storage: mysql.New(mysql.Config{
			Db:    dbo.DB,
			Table: "fiber_sessions",
		}),
		Expiration:     30 * time.Minute,
		CookieName:     "alimflow_session",
		CookieSecure:   cfg.Server.CookieSecure,
		CookieHTTPOnly: true,
	})
	log.Info("MySQL 세션 스토어가 설정되었습니다.")

	// 카카오 플랫폼 클라이언트
	httpClient := &http.Client{Timeout: 30 * time.Second}
	tokens := kakao.NewClientCredentials(cfg.Kakao.BaseURL, cfg.Kakao.ClientID, cfg.Kakao.ClientSecret, httpClient)
	kakaoClient := kakao.NewClient(cfg.Kakao.BaseURL, tokens, httpClient)

	// --- 의존성 조립 ---
	workspaceStore := workspace.NewStore(dbo)
	variableStore := variable.NewStore(dbo)

	// Auth
	authStore := auth.NewStore(dbo)
	authService := auth.NewService(authStore)
	authHandler := auth.NewAuthHandler(authService, sessionStore, workspaceStore)

	// Content group
	groupStore := contentgroup.NewStore(dbo)
	groupService := contentgroup.NewService(groupStore)
	groupHandler := contentgroup.NewContentGroupHandler(groupService)

	// Message
	messageStore := message.NewStore(dbo)
	messageService := message.NewService(messageStore, kakaoClient, workspaceStore, variableStore, groupStore)
	messageHandler := message.NewMessageHandler(messageService)

	// Event
	eventStore := event.NewStore(dbo)
	eventService := event.NewService(eventStore, messageStore)
	eventHandler := event.NewEventHandler(eventService)

	// Alert
	alertService := alert.NewService(alert.NewStore(dbo), alert.NewSlackSender())
	alertHandler := alert.NewAlertHandler(alertService)

	// Dashboard
	dashboardService := dashboard.NewService(workspaceStore, messageStore, eventStore, groupStore)
	dashboardHandler := dashboard.NewDashboardHandler(dashboardService)

	// Scheduler
	syncScheduler := scheduler.NewScheduler(messageService, alertService, cfg.Server.SyncBatchSize)

	// Fiber 앱
	engine := html.New(cfg.Server.ViewsDir, ".html")
	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: middleware.ErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 이미지 다중 업로드
	})
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	log.Info("라우트를 설정합니다...")

	// 인증이 필요 없는 그룹
	authGroup := app.Group("/auth")
	{
		authGroup.Get("/login", authHandler.HandleShowLoginPage)
		authGroup.Post("/register", authHandler.HandleRegister)
		authGroup.Post("/login", authHandler.HandleLogin)
		authGroup.Get("/setup-otp", authHandler.HandleShowSetupOTP)
		authGroup.Post("/setup-otp", authHandler.HandleProcessSetupOTP)
		authGroup.Post("/verify-otp", authHandler.HandleProcessVerifyOTP)
		authGroup.Post("/logout", authHandler.HandleLogout)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/auth/login")
	})

	// 로그인한 모든 사용자
	appGroup := app.Group("/", middleware.AuthMiddleware(sessionStore))
	appGroup.Get("/me", authHandler.HandleMe)

	// 워크스페이스 구성원
	ws := appGroup.Group("/workspace/:wid", middleware.WorkspaceMiddleware(workspaceStore))
	{
		ws.Get("/dashboard", dashboardHandler.HandleGetDashboard)

		// [메시지] 고정 경로를 :id 보다 먼저 등록합니다.
		ws.Get("/message", messageHandler.HandleListMessages)
		ws.Post("/message", messageHandler.HandleCreateMessage)
		ws.Get("/message/variables", messageHandler.HandleGetVariables)
		ws.Get("/message/quick-start", messageHandler.HandleListQuickStart)
		ws.Post("/message/preview", messageHandler.HandlePreviewForm)
		ws.Get("/message/:id", messageHandler.HandleGetMessage)
		ws.Patch("/message/:id", messageHandler.HandleUpdateMessage)
		ws.Delete("/message/:id", messageHandler.HandleDeleteMessage)
		ws.Get("/message/:id/preview", messageHandler.HandleShowPreview)
		ws.Post("/message/:id/inspection", messageHandler.HandleRequestInspection)
		ws.Delete("/message/:id/inspection", messageHandler.HandleCancelInspection)

		// [카카오]
		ws.Get("/kakao/category/message", messageHandler.HandleGetCategories)
		ws.Post("/kakao/image", messageHandler.HandleUploadImage)

		// [이벤트]
		ws.Get("/event", eventHandler.HandleListEvents)
		ws.Post("/event", eventHandler.HandleCreateEvent)
		ws.Get("/event/:id", eventHandler.HandleGetEvent)
		ws.Put("/event/:id", eventHandler.HandleUpdateEvent)
		ws.Delete("/event/:id", eventHandler.HandleDeleteEvent)

		// [콘텐츠 그룹]
		ws.Get("/content-group", groupHandler.HandleListGroups)
		ws.Post("/content-group", groupHandler.HandleCreateGroup)
		ws.Get("/content-group/:id", groupHandler.HandleGetGroup)
		ws.Put("/content-group/:id", groupHandler.HandleUpdateGroup)
		ws.Delete("/content-group/:id", groupHandler.HandleDeleteGroup)

		// [Slack 알림]
		ws.Get("/alert", alertHandler.HandleGetConfig)
		ws.Put("/alert", alertHandler.HandleSaveConfig)
		ws.Delete("/alert", alertHandler.HandleDeleteConfig)
		ws.Post("/alert/test", alertHandler.HandleSendTest)
	}

	// 관리자 전용 그룹
	adminGroup := app.Group("/admin",
		middleware.AuthMiddleware(sessionStore),
		middleware.AdminOnlyMiddleware(),
	)
	{
		adminGroup.Get("/users", authHandler.HandleListUsers)
		adminGroup.Post("/users/:id/approve", authHandler.HandleApproveUser)
		adminGroup.Post("/privilege", authHandler.HandleChangePrivilege)
	}

	// 서버 시작 (우아한 종료)
	if err := syncScheduler.Start(); err != nil {
		log.Fatalf("스케줄러 시작 실패: %v", err)
	}

	go func() {
		log.Infof("alimflow 서버(HTTP)가 [::]:%s 포트에서 시작됩니다.", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
			log.Panicf("HTTP 서버 Listen 실패: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("alimflow 서버 종료 신호 수신...")

	syncScheduler.Stop()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("HTTP 서버 Shutdown 실패: %v", err)
	}
	if err := dbo.Close(); err != nil {
		log.Errorf("DB 연결 종료 실패: %v", err)
	}
	log.Info("alimflow 서버가 정상적으로 종료되었습니다.")
}
