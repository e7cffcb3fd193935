package httpserver

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const accessCookie = "accessToken"

// Logging logs request metadata only, never payloads.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if u, ok := UserFromCtx(c.Request.Context()); ok {
			fields = append(fields, zap.String("user_id", u.ID.String()))
		}
		log.Info("http", fields...)
	}
}

// Recover turns panics into the generic internal error envelope.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.FullPath()),
				)
				fail(c, http.StatusInternalServerError, msgInternal)
			}
		}()
		c.Next()
	}
}

// CORS allows a single browser origin to call the API with credentials.
// Preflights are answered here and never reach the router.
func CORS(origin string) gin.HandlerFunc {
	var allowed []string
	if origin != "" {
		allowed = []string{origin}
	}
	h := cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
		// Let preflights fall through so the 204 below is the only status written.
		OptionsPassthrough: true,
	})
	setHeaders := h.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	return func(c *gin.Context) {
		setHeaders.ServeHTTP(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// bearerToken prefers the Authorization header and falls back to the
// access cookie only when no bearer header is sent.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(accessCookie); err == nil {
		return v
	}
	return ""
}

// Authenticate is the access guard for protected routes.
func (s *Server) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.auth.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}
