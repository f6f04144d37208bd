package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ZapLogger пишет в zap по строке на запрос: метод, путь, статус, длительность.
func ZapLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("requestID", middleware.GetReqID(r.Context())),
				}
				if ww.Status() >= http.StatusInternalServerError {
					logger.Warn("http запрос", fields...)
					return
				}
				logger.Debug("http запрос", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware проверяет заголовок "Authorization: Bearer <API_TOKEN>".
// Пустой токен в конфигурации закрывает служебные методы полностью.
func AuthMiddleware(apiToken string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiToken == "" {
				writeError(w, http.StatusForbidden, "API disabled")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("AuthMiddleware: пустой заголовок Authorization", zap.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("AuthMiddleware: неверный формат заголовка Authorization")
				writeError(w, http.StatusUnauthorized, "invalid Authorization header")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(apiToken)) != 1 {
				logger.Warn("AuthMiddleware: неверный токен", zap.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
