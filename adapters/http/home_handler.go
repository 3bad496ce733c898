package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const homePage = `<html><head><title>Home</title></head><body><h1>Welcome to the User Directory</h1></body></html>`

func Home(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homePage))
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
