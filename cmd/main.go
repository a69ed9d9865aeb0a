package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"mailgrid/internal/caching"
	"mailgrid/internal/common"
	"mailgrid/internal/handlers"
	"mailgrid/internal/jobs/background"
	"mailgrid/internal/middleware"
	"mailgrid/internal/repositories"
	"mailgrid/internal/services"
	"mailgrid/pkg/database"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	minioBucket := os.Getenv("MINIO_BUCKET")
	if minioBucket == "" {
		minioBucket = "mailgrid-assets"
	}
	minioUseSSL := os.Getenv("MINIO_USE_SSL") == "true"

	// PayPal configuration
	paypalClientID := os.Getenv("PAYPAL_CLIENT_ID")
	paypalSecret := os.Getenv("PAYPAL_SECRET")
	paypalWebhookID := os.Getenv("PAYPAL_WEBHOOK_ID")
	paypalBaseURL := os.Getenv("PAYPAL_BASE_URL")

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	orgRepo := repositories.NewOrganizationRepo(pool)
	planRepo := repositories.NewPlanRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	orderRepo := repositories.NewPaymentOrderRepo(pool)
	webhookRepo := repositories.NewWebhookEventRepo(pool)
	contactRepo := repositories.NewContactRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)

	// Cache
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Object storage
	assetSvc, err := services.NewAssetService(minioEndpoint, minioAccessKey, minioSecretKey, minioBucket, minioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize asset service: %v", err)
	}
	if err := assetSvc.EnsureBucketExists(context.Background()); err != nil {
		log.Printf("WARN: Could not ensure asset bucket: %v", err)
	}

	// Services
	authSvc := services.NewAuthService(userRepo, cacheSvc, jwtSecret)
	rbacSvc := services.NewRBACService(userRepo, roleRepo)
	subSvc := services.NewSubscriptionService(subscriptionRepo, planRepo, cacheSvc)
	paypalSvc := services.NewPayPalService(paypalClientID, paypalSecret, paypalWebhookID, paypalBaseURL)
	billingSvc := services.NewBillingService(subscriptionRepo, planRepo, invoiceRepo, orderRepo, webhookRepo, paypalSvc)
	orgSvc := services.NewOrganizationService(orgRepo, userRepo, rbacSvc)
	contactSvc := services.NewContactService(contactRepo, subSvc)
	campaignSvc := services.NewCampaignService(campaignRepo, subSvc)
	dashboardSvc := services.NewDashboardService(contactRepo, campaignRepo, subSvc)

	// Middleware
	rbacMiddleware := middleware.NewRBACMiddleware(rbacSvc)
	jwtMiddleware := middleware.JWTMiddleware(authSvc)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, rbacSvc)
	contactHandlers := handlers.NewContactHandlers(contactSvc)
	campaignHandlers := handlers.NewCampaignHandlers(campaignSvc, assetSvc)
	organizationHandlers := handlers.NewOrganizationHandlers(orgSvc)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subSvc)
	billingHandlers := handlers.NewBillingHandlers(billingSvc)
	webhookHandlers := handlers.NewWebhookHandlers(billingSvc)
	dashboardHandlers := handlers.NewDashboardHandlers(dashboardSvc)
	healthHandlers := handlers.NewHealthHandlers(pool)

	// Background jobs
	scheduler := background.NewJobScheduler(subSvc)
	if err := scheduler.Start(); err != nil {
		log.Printf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	e := echo.New()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.RefreshToken)
	auth.POST("/reset-password", authHandlers.ResetPassword)
	auth.POST("/reset-password/confirm", authHandlers.ConfirmPasswordReset)

	v1.GET("/plans", subscriptionHandlers.ListPlans)

	// Webhooks authenticate themselves via provider signatures.
	v1.POST("/webhooks/paypal", webhookHandlers.HandlePayPalWebhook)

	// Protected routes
	protected := v1.Group("")
	protected.Use(jwtMiddleware)

	protected.GET("/auth/me", authHandlers.Me)
	protected.POST("/auth/change-password", authHandlers.ChangePassword)

	protected.POST("/organizations", organizationHandlers.CreateOrganization)
	protected.GET("/organizations/me", organizationHandlers.GetOrganization)
	protected.PATCH("/organizations/me", organizationHandlers.UpdateOrganization, rbacMiddleware.RequirePermission(common.PermOrgManage))
	protected.POST("/organizations/me/members", organizationHandlers.AddMember, rbacMiddleware.RequirePermission(common.PermOrgManage))
	protected.DELETE("/organizations/me/members/:id", organizationHandlers.RemoveMember, rbacMiddleware.RequirePermission(common.PermOrgManage))

	protected.POST("/subscriptions", subscriptionHandlers.Subscribe)
	protected.GET("/subscriptions", subscriptionHandlers.ListSubscriptions)
	protected.GET("/subscriptions/active", subscriptionHandlers.GetActiveSubscription)
	protected.GET("/subscriptions/:id", subscriptionHandlers.GetSubscription)
	protected.PUT("/subscriptions/:id/plan", subscriptionHandlers.ChangePlan)
	protected.POST("/subscriptions/:id/cancel", subscriptionHandlers.CancelSubscription)
	protected.GET("/subscriptions/features/:code", subscriptionHandlers.CheckFeature)

	protected.POST("/billing/orders", billingHandlers.CreateOrder, rbacMiddleware.RequirePermission(common.PermBillingManage))
	protected.POST("/billing/capture", billingHandlers.CaptureOrder, rbacMiddleware.RequirePermission(common.PermBillingManage))
	protected.GET("/billing/subscriptions/:id/invoices", billingHandlers.ListInvoices, rbacMiddleware.RequirePermission(common.PermBillingManage))

	protected.GET("/contacts", contactHandlers.ListContacts, rbacMiddleware.RequirePermission(common.PermContactRead))
	protected.GET("/contacts/tags", contactHandlers.ListTags, rbacMiddleware.RequirePermission(common.PermContactRead))
	protected.POST("/contacts", contactHandlers.CreateContact, rbacMiddleware.RequirePermission(common.PermContactCreate))
	protected.GET("/contacts/:id", contactHandlers.GetContact, rbacMiddleware.RequirePermission(common.PermContactRead))
	protected.PATCH("/contacts/:id", contactHandlers.UpdateContact, rbacMiddleware.RequirePermission(common.PermContactUpdate))
	protected.DELETE("/contacts/:id", contactHandlers.DeleteContact, rbacMiddleware.RequirePermission(common.PermContactDelete))

	protected.GET("/campaigns", campaignHandlers.ListCampaigns, rbacMiddleware.RequirePermission(common.PermCampaignRead))
	protected.POST("/campaigns", campaignHandlers.CreateCampaign, rbacMiddleware.RequirePermission(common.PermCampaignCreate))
	protected.GET("/campaigns/:id", campaignHandlers.GetCampaign, rbacMiddleware.RequirePermission(common.PermCampaignRead))
	protected.PATCH("/campaigns/:id", campaignHandlers.UpdateCampaign, rbacMiddleware.RequirePermission(common.PermCampaignUpdate))
	protected.DELETE("/campaigns/:id", campaignHandlers.DeleteCampaign, rbacMiddleware.RequirePermission(common.PermCampaignDelete))
	protected.PUT("/campaigns/:id/metrics", campaignHandlers.RecordMetrics, rbacMiddleware.RequirePermission(common.PermCampaignUpdate))
	protected.POST("/campaigns/:id/assets", campaignHandlers.UploadAsset, rbacMiddleware.RequirePermission(common.PermCampaignUpdate))

	protected.GET("/dashboard/stats", dashboardHandlers.GetStats, rbacMiddleware.RequirePermission(common.PermDashboardView))

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("Mailgrid server v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
