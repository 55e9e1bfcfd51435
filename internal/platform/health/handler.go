package health

import (
	"context"
	"net/http"

	"github.com/SlpAus/michelin-vote-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
)

// DBPinger 由 *sql.DB 实现
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// Response 是 /api/health 的响应体
type Response struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Handler 返回健康检查接口。数据库不可用时返回503；
// Redis只是缓存，它的状态仅用于展示。
func Handler(db DBPinger, status *database.RedisStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()

		resp := Response{Database: "ok", Redis: status.State()}
		if err := db.PingContext(ctx); err != nil {
			resp.Database = "unavailable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
