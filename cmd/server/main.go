package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/moim-backend/internal/cache"
	"github.com/noteduco342/moim-backend/internal/config"
	"github.com/noteduco342/moim-backend/internal/handlers"
	"github.com/noteduco342/moim-backend/internal/handlers/ws"
	"github.com/noteduco342/moim-backend/internal/live"
	"github.com/noteduco342/moim-backend/internal/middleware"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
	"github.com/noteduco342/moim-backend/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	app := fiber.New(fiber.Config{
		AppName:   "Moim Backend",
		BodyLimit: 1 * 1024 * 1024,
		// Route params and query values are handed to services that outlive
		// the request.
		Immutable: true,
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Moim-CSRF",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: cfg.AllowedOrigins != "" && cfg.AllowedOrigins != "*",
	}))

	db, err := repository.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Redis carries the group cache and the change notices. Without it the
	// process runs with no cache and an in-process broker.
	redisCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	err = redisCache.Ping(pingCtx)
	cancelPing()

	var broker live.Broker
	if err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache, live updates stay in-process.", err)
		redisCache.Close()
		redisCache = nil
		broker = live.NewMemoryBroker()
	} else {
		log.Println("Redis cache connected successfully")
		broker = live.NewRedisBroker(redisCache)
	}
	groupCache := cache.NewGroupCache(redisCache)
	publisher := live.NewPublisher(broker)

	// Initialize repositories
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Initialize services
	membershipService := service.NewMembershipService(groupRepo, groupCache, publisher)
	reconciler := service.NewReconciler(membershipService, broker)
	deleter := service.NewSubtreeDeleter(postRepo, commentRepo, publisher, cfg.CascadeBatchSize)
	contentService := service.NewContentService(groupRepo, postRepo, commentRepo, deleter, publisher)
	feedService := service.NewFeedService(postRepo, commentRepo, cfg.Feed.PageSize, cfg.Feed.SearchCeiling)
	directory := service.NewGroupDirectory(groupRepo, cfg.Feed.GroupPageSize)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(&ws.Sources{
		Broker:     broker,
		Membership: membershipService,
		Feeds:      feedService,
		Content:    contentService,
		Directory:  directory,
	})
	groupHandler := handlers.NewGroupHandler(membershipService, reconciler, directory)
	feedHandler := handlers.NewFeedHandler(feedService)
	postHandler := handlers.NewPostHandler(contentService)

	api := app.Group("/api", middleware.OriginAllowed(cfg.AllowedOrigins))
	protected := api.Group("/",
		middleware.AuthRequired(cfg.JWTSecret),
		middleware.CSRFRequired(middleware.CSRFMode(cfg.CSRFMode), cfg.AllowedOrigins),
	)

	// Group and membership routes
	protected.Post("/groups", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if uid, ok := c.Locals(middleware.LocalUserID).(string); ok {
				return "groups:" + uid
			}
			return c.IP()
		},
	}), groupHandler.CreateGroup)
	protected.Get("/groups", groupHandler.ListGroups)
	protected.Get("/me/groups", groupHandler.ListMyGroups)
	protected.Get("/groups/:id", groupHandler.GetGroup)
	protected.Post("/groups/:id/join", groupHandler.JoinGroup)
	protected.Post("/groups/:id/leave", groupHandler.LeaveGroup)
	protected.Get("/groups/:id/membership", groupHandler.GetMembership)
	protected.Post("/groups/:id/membership/toggle", groupHandler.ToggleMembership)
	protected.Put("/groups/:id/owner", groupHandler.TransferOwnership)
	protected.Delete("/groups/:id/members/:userId", groupHandler.KickMember)

	// Feed routes
	for _, r := range []struct {
		prefix string
		kind   models.ParentKind
	}{
		{"/groups/:id/feed", models.ParentGroup},
		{"/posts/:id/comments/feed", models.ParentPost},
	} {
		protected.Get(r.prefix, feedHandler.List(r.kind))
		protected.Post(r.prefix+"/next", feedHandler.Next(r.kind))
		protected.Get(r.prefix+"/search", feedHandler.Search(r.kind))
		protected.Post(r.prefix+"/search/next", feedHandler.SearchNext(r.kind))
		protected.Post(r.prefix+"/scroll", feedHandler.Scroll(r.kind))
	}
	protected.Delete("/feed", feedHandler.Discard)
	protected.Get("/groups/:id/posts", feedHandler.ListPosts)

	// Post and comment routes
	protected.Post("/groups/:id/posts", postHandler.CreatePost)
	protected.Get("/posts/:id", postHandler.GetPost)
	protected.Put("/posts/:id", postHandler.EditPost)
	protected.Delete("/posts/:id", postHandler.DeletePost)
	protected.Get("/posts/:id/comments", postHandler.ListComments)
	protected.Post("/posts/:id/comments", postHandler.CreateComment)
	protected.Put("/comments/:id", postHandler.EditComment)
	protected.Delete("/comments/:id", postHandler.DeleteComment)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(cfg.AllowedOrigins),
		middleware.AuthRequired(cfg.JWTSecret),
		func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"message":  "Moim backend is running",
			"sessions": wsHandler.GetHub().Count(),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		wsHandler.GetHub().Close()
		reconciler.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s...", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
	if redisCache != nil {
		redisCache.Close()
	}
}
