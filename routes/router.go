package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/controllers"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/templates"
	"github.com/yatube/yatube/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, true))

	r.HTMLRender = templates.MustNew()
	r.MaxMultipartMemory = int64(cfg.UploadMaxMB+1) << 20

	r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)
	if _, err := os.Stat(cfg.StaticRoot); err == nil {
		r.Static("/static", cfg.StaticRoot)
	}

	r.GET("/health", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			status["status"], status["database"] = "degraded", "unreachable"
		}
		if utils.GetRedis() != nil {
			status["redis"] = "ok"
			if err := utils.PingRedis(ctx.Request.Context()); err != nil {
				status["status"], status["redis"] = "degraded", "unreachable"
			}
		}
		utils.Success(ctx, status)
	})

	registerSite(r, db, cfg)
	registerAPI(r, db, cfg)

	r.NoRoute(middleware.LoadSessionUser(db), func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		controllers.NotFound(ctx)
	})

	return r
}

// registerSite mounts the HTML pages.
func registerSite(r *gin.Engine, db *gorm.DB, cfg config.AppConfig) {
	postController := controllers.NewPostController(db)
	followController := controllers.NewFollowController(db)
	authController := controllers.NewAuthController(db)

	site := r.Group("/")
	site.Use(middleware.LoadSessionUser(db))

	site.GET("/", middleware.CachePage(time.Duration(cfg.IndexCacheSeconds)*time.Second), postController.Index)
	site.GET("/group/:slug/", postController.GroupPosts)
	site.GET("/profile/:username/", postController.Profile)
	site.GET("/posts/:post_id/", postController.PostDetail)

	private := site.Group("/")
	private.Use(middleware.LoginRequired())
	anyMethod(private, "/create/", postController.PostCreate)
	anyMethod(private, "/posts/:post_id/edit/", postController.PostEdit)
	private.POST("/posts/:post_id/comment/", postController.AddComment)
	private.GET("/follow/", followController.FollowIndex)
	anyMethod(private, "/profile/:username/follow/", followController.ProfileFollow)
	anyMethod(private, "/profile/:username/unfollow/", followController.ProfileUnfollow)

	auth := site.Group("/auth")
	anyMethod(auth, "/login/", authController.LoginPage)
	anyMethod(auth, "/logout/", authController.LogoutPage)
	anyMethod(auth, "/signup/", authController.SignupPage)

	site.GET("/about/author/", controllers.StaticPage("about/author.html"))
	site.GET("/about/tech/", controllers.StaticPage("about/tech.html"))
}

// registerAPI mounts the JSON API behind CORS, JWT auth and rate limiting.
func registerAPI(r *gin.Engine, db *gorm.DB, cfg config.AppConfig) {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	authController := controllers.NewAuthController(db)
	apiController := controllers.NewAPIController(db)

	api := r.Group("/api/v1")
	api.Use(cors.New(corsCfg))

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit("auth", cfg.RateLimitPerMinute))
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/posts", apiController.ListPosts)
	api.GET("/posts/:id", apiController.GetPost)
	api.GET("/posts/:id/comments", apiController.ListComments)
	api.GET("/groups", apiController.ListGroups)
	api.GET("/groups/:slug", apiController.GetGroup)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimit("api", cfg.RateLimitPerMinute))
	protected.POST("/posts", apiController.CreatePost)
	protected.PATCH("/posts/:id", apiController.UpdatePost)
	protected.DELETE("/posts/:id", apiController.DeletePost)
	protected.POST("/posts/:id/comments", apiController.CreateComment)
	protected.GET("/follow", apiController.ListFollowing)
	protected.POST("/follow/:username", apiController.Follow)
	protected.DELETE("/follow/:username", apiController.Unfollow)
	protected.GET("/feed", apiController.Feed)
}

func anyMethod(g *gin.RouterGroup, path string, h gin.HandlerFunc) {
	g.GET(path, h)
	g.POST(path, h)
}

// NewHandler returns the router, wrapped in CSRF protection for the HTML site when enabled.
// The API authenticates with bearer tokens and is left out.
func NewHandler(db *gorm.DB) http.Handler {
	r := SetupRouter(db)
	cfg := config.Get()
	if !cfg.CSRFEnabled {
		return r
	}

	pages := templates.MustNew()
	protect := csrf.Protect(
		[]byte(csrfKey(cfg.SecretKey)),
		csrf.Secure(cfg.SessionSecure),
		csrf.Path("/"),
		csrf.FieldName("csrfmiddlewaretoken"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			utils.Sugar.Warnw("csrf check failed", "path", req.URL.Path, "reason", csrf.FailureReason(req))
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_ = pages.Execute(w, "core/403csrf.html", map[string]any{
				"year":   time.Now().Year(),
				"reason": csrf.FailureReason(req),
			})
		})),
	)
	site := protect(r)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			r.ServeHTTP(w, req)
			return
		}
		if req.TLS == nil && !cfg.SessionSecure {
			req = csrf.PlaintextHTTPRequest(req)
		}
		site.ServeHTTP(w, req)
	})
}

// csrfKey stretches or trims the secret to the 32 bytes gorilla/csrf expects.
func csrfKey(secret string) string {
	if secret == "" {
		secret = "yatube"
	}
	for len(secret) < 32 {
		secret += secret
	}
	return secret[:32]
}
