package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/mmhlko/post-feed/internal/logging"
	"github.com/mmhlko/post-feed/internal/service"
)

type RouterConfig struct {
	Auth        *service.AuthService
	Profiles    *service.ProfileService
	Posts       *service.PostService
	Cookie      CookieConfig
	Logger      *slog.Logger
	CORSOrigins []string
	// UploadsDir is served under UploadsPrefix when set (disk storage).
	UploadsDir    string
	UploadsPrefix string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	if cfg.Logger != nil {
		router.Use(logging.GinLogger(cfg.Logger))
	}
	router.Use(CORSMiddleware(cfg.CORSOrigins, true))

	router.GET("/", Root)
	router.GET("/ping", Ping)
	router.GET("/openapi.json", OpenAPIDoc)
	if cfg.UploadsDir != "" && cfg.UploadsPrefix != "" {
		router.Static(cfg.UploadsPrefix, cfg.UploadsDir)
	}

	authHandler := NewAuthHandler(cfg.Auth, cfg.Cookie)
	requireAuth := AuthMiddleware(cfg.Auth)

	auth := router.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.GET("/refresh", authHandler.Refresh)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)

	if cfg.Profiles != nil {
		profileHandler := NewProfileHandler(cfg.Profiles)
		user := router.Group("/user", requireAuth)
		user.GET("/:id", profileHandler.GetProfile)
		user.PATCH("/:id", profileHandler.UpdateProfile)
		user.POST("/:id/avatar", profileHandler.UploadAvatar)
	}

	if cfg.Posts != nil {
		postHandler := NewPostHandler(cfg.Posts)
		posts := router.Group("/posts", requireAuth)
		posts.GET("", postHandler.ListPosts)
		posts.POST("", postHandler.CreatePost)
		posts.GET("/:id", postHandler.GetPost)
		posts.PATCH("/:id", postHandler.UpdatePost)
		posts.DELETE("/:id", postHandler.DeletePost)
	}

	return router
}
