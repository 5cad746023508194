package main // Entry point package

import (
	"context" // context for the schema migration at startup
	"log"     // Logging library
	"time"    // startup timeouts

	"github.com/joho/godotenv"    // loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/config"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/database"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/handler"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/middleware"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/queue"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/repository"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/router"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/assignment"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/mailer"
	"github.com/Vasanthakumar-27/SERVONIX-Bus-Complaint-Management-System/internal/service/otp"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	migCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(migCtx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Repositories.
	users := repository.NewUserRepo(db)
	transit := repository.NewTransitRepo(db)
	assignments := repository.NewAssignmentRepo(db)
	complaints := repository.NewComplaintRepo(db)
	otps := repository.NewOTPRepo(db)

	// Assignment resolver over the route assignment tables.
	resolver := assignment.NewResolver(assignments, transit, complaints)

	// OTP delivery: SMTP when credentials are configured, console
	// logging otherwise so development works without a mail account.
	smtpCfg := config.LoadSMTPConfig()
	var sender otp.Sender
	if smtpCfg.Password != "" {
		sender = mailer.NewSMTPSender(smtpCfg)
	} else if cfg.DevMode() {
		log.Println("SMTP password not set, logging codes to console")
		sender = mailer.ConsoleSender{}
	} else {
		log.Fatal("SMTP credentials are required in prod")
	}

	otpSvc := otp.NewService(otps, users, sender, otp.Config{
		CodeLength:  cfg.OTPLength,
		CodeTTL:     cfg.OTPTTL,
		WindowCap:   cfg.OTPWindowCap,
		Window:      cfg.OTPWindow,
		TokenSecret: cfg.JWTSecret,
		BcryptCost:  cfg.BcryptCost,
		DevMode:     cfg.DevMode(),
	})

	// Handlers.
	authH := handler.NewAuthHandler(cfg, otpSvc, users, resolver)
	complaintH := handler.NewComplaintHandler(complaints, users, resolver)
	headH := handler.NewHeadHandler(transit, assignments, users)

	// Redis backs the API rate limiter and the public listing cache.
	// Both degrade to pass-through when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterComplaints(e, complaintH, cfg.JWTSecret)
	router.RegisterHead(e, headH, cfg.JWTSecret, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Notification consumer drains the broker in the background and
	// keeps retrying if RabbitMQ is down.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
