package api

import (
	"github.com/SlpAus/michelin-vote-backend/internal/restaurant"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, restaurants *restaurant.Handler, health gin.HandlerFunc) {
	api := router.Group("/api")
	{
		// 餐厅相关的路由
		api.GET("/restaurants", restaurants.GetPair)
		api.GET("/leaderboard", restaurants.GetLeaderboard)

		// 投票相关的路由
		api.POST("/vote", restaurants.SubmitVote)

		api.GET("/health", health)
	}
}
