package http

import (
	"github.com/gin-gonic/gin"

	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/validation"
)

type RouterConfig struct {
	Env         string
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig, userHandler *UserHandler, log logger.Logger) *gin.Engine {
	validation.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(cfg.CORSOrigins))
	if cfg.Env == "development" {
		router.Use(gin.Logger())
	}
	router.Use(ErrorMiddleware(log))

	router.GET("/", Home)
	router.GET("/health", Health)

	users := router.Group("/users")
	{
		users.GET("", userHandler.ListUsers)
		users.POST("/create", userHandler.CreateUser)
	}

	return router
}
