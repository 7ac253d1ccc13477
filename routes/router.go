package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recipehub/recipehub/config"
	"github.com/recipehub/recipehub/controllers"
	"github.com/recipehub/recipehub/middleware"
	"github.com/recipehub/recipehub/utils"
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
	r.Use(utils.RecoveryWithZap(utils.Logger))
	r.Use(utils.RequestLogger(utils.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Uploaded images are served straight from disk.
	r.Static("/static/uploads", cfg.UploadDir)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	// Resolve the requester on every API route so handlers can branch on
	// authenticated vs anonymous without another DB lookup.
	api := r.Group("/api/v1")
	api.Use(middleware.CurrentUser(db))

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	favoriteController := controllers.NewFavoriteController(db)
	adminController := controllers.NewAdminController(db)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)
	authGroup.POST("/change-password", middleware.AuthRequired(), authController.ChangePassword)
	authGroup.POST("/avatar", middleware.AuthRequired(), authController.UploadAvatar)

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/search", postController.Search)
	postsGroup.GET("/:id", postController.GetPost)
	postsGroup.GET("/:id/comments", commentController.ListComments)

	api.GET("/tags/:name/posts", postController.ListByTag)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())
	protected.GET("/users/me/posts", postController.ListMyPosts)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/delete-multiple", postController.DeleteMultiple)
	protected.POST("/posts/:id/images", postController.UploadImage)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.PUT("/comments/:id", commentController.UpdateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)
	protected.POST("/comments/:id/react", commentController.React)
	protected.POST("/posts/:id/favorite", favoriteController.ToggleFavorite)
	protected.POST("/posts/:id/save", favoriteController.ToggleSave)
	protected.GET("/users/me/favorites", favoriteController.ListFavorites)
	protected.GET("/users/me/saved", favoriteController.ListSaved)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.GET("/users", adminController.ListUsers)
	admin.POST("/users", adminController.CreateUser)
	admin.PUT("/users/:id", adminController.UpdateUser)
	admin.POST("/users/:id/block", adminController.BlockUser)
	admin.POST("/users/:id/unblock", adminController.UnblockUser)
	admin.POST("/users/:id/reset-password", adminController.ResetPassword)
	admin.DELETE("/users/:id", adminController.DeleteUser)
	admin.POST("/users/delete-multiple", adminController.DeleteMultipleUsers)
	admin.GET("/posts", adminController.ListPosts)
	admin.DELETE("/posts/:id", adminController.DeletePost)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
