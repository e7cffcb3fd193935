// Package httpserver exposes the filevault HTTP API on gin.
package httpserver

import (
	"net/http"

	"github.com/and161185/filevault/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options tune transport-level behaviour.
type Options struct {
	CORSOrigin    string
	CookieSecure  bool
	MaxUploadSize int64
}

// Server wires services into gin handlers.
type Server struct {
	auth  service.AuthService
	files service.FileService
	log   *zap.Logger
	opts  Options
}

// New constructs an HTTP server with injected services.
func New(auth service.AuthService, files service.FileService, log *zap.Logger, opts Options) *Server {
	return &Server{auth: auth, files: files, log: log, opts: opts}
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log), CORS(s.opts.CORSOrigin))
	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "route not found") })

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "filevault API server")
	})
	r.GET("/health", func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
	})

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", s.handleRegister)
		users.POST("/login", s.handleLogin)
		users.POST("/logout", s.handleLogout)
		users.POST("/refresh-token", s.handleRefresh)
	}

	protected := users.Group("", s.Authenticate())
	{
		protected.GET("/profile", s.handleGetProfile)
		protected.PUT("/profile", s.handleUpdateProfile)
		protected.PUT("/update-password", s.handleUpdatePassword)

		protected.POST("/upload", s.handleUpload)
		protected.GET("/all", s.handleList)
		protected.GET("/:fileId", s.handleGetFile)
		protected.GET("/:fileId/download", s.handleDownload)
		protected.DELETE("/:fileId", s.handleDeleteFile)
	}
	return r
}
