package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "github.com/akash-limitlessglobaltechnologies/contract/internal/auth"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/contracts"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/payments"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/config"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/server/middleware"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/shared/server/respond"
	"github.com/akash-limitlessglobaltechnologies/contract/internal/users"
)

// RouterDeps carries the wired handlers the router mounts.
type RouterDeps struct {
	Config     config.Config
	Contracts  *contracts.Handler
	Payments   *payments.Handler
	Users      *users.Handler
	GoogleAuth *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Signing-key and payment routes stay outside the auth middleware; the
// signing key itself is the recipient's credential.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.Contracts != nil {
		deps.Contracts.RegisterPublicRoutes(api)
	}
	if deps.Payments != nil {
		deps.Payments.RegisterRoutes(api)
	}

	authed := api.Group("", middleware.Auth())
	if deps.Users != nil {
		deps.Users.RegisterRoutes(authed)
	}
	if deps.Contracts != nil {
		deps.Contracts.RegisterRoutes(authed)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
