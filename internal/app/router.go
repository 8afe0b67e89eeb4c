package app

import (
	"edu_bridge_backend/docs"
	"edu_bridge_backend/internal/middleware"
	"edu_bridge_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Gateway), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/me", c.auth.Me)
		authGroup.POST("/sync", c.sync.Sync)

		a.registerLessonRoutes(authGroup, c)
		a.registerProgressRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/signup", c.auth.SignUp)
		public.POST("/auth/login", c.auth.Login)
	}
}

func (a *App) registerLessonRoutes(rg *gin.RouterGroup, c *controllers) {
	lessons := rg.Group("/lessons")
	{
		lessons.GET("", c.lesson.ListLessons)
		lessons.GET("/student", c.lesson.ListStudentLessons)
		lessons.POST("/assign", c.lesson.AssignLesson)
		lessons.GET("/:id", c.lesson.GetLesson)
	}
}

func (a *App) registerProgressRoutes(rg *gin.RouterGroup, c *controllers) {
	progress := rg.Group("/progress")
	{
		progress.POST("/complete", c.progress.RecordProgress)
		progress.GET("/teacher/:classId", c.progress.TeacherDashboard)
	}
}
