package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-user-lifecycle/internal/interface/http"
	"github.com/oksasatya/go-user-lifecycle/internal/interface/middleware"
)

// UserModule registers the user lifecycle routes under the given group:
// GET /users, GET /users/search, GET /users/:id, POST /users,
// PUT /users/:id, DELETE /users/:id.
type UserModule struct {
	Handler         *handlers.UserHandler
	Redis           *redis.Client
	WritesPerMinute int
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client, writesPerMinute int) *UserModule {
	return &UserModule{Handler: h, Redis: rdb, WritesPerMinute: writesPerMinute}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.RateLimit(m.Redis, m.WritesPerMinute, time.Minute, middleware.KeyByIPAndRoute(), middleware.AnyOf(middleware.AllowReads(), middleware.AllowPrivateIP())))
	{
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.POST("", m.Handler.Create)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
