package middlew

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/service"
	"gw-ipn-relay/pkg/response"
)

// RequireAuth пропускает только запросы с действующим токеном администратора.
func RequireAuth(authService service.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := GetLogger(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Authorization header is required")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				log.Warn("invalid authorization header format")
				response.WriteJSONError(w, log, http.StatusUnauthorized, "unauthorized", "Invalid authorization header format")
				return
			}

			claims, err := authService.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				switch {
				case errors.Is(err, custom_err.ErrTokenExpired):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "token_expired", "Token has expired")
				case errors.Is(err, custom_err.ErrInvalidToken):
					response.WriteJSONError(w, log, http.StatusUnauthorized, "invalid_token", "Invalid token")
				case errors.Is(err, custom_err.ErrUnauthorized):
					response.WriteJSONError(w, log, http.StatusForbidden, "forbidden", "Admin access required")
				case errors.Is(err, custom_err.ErrAuthDisabled):
					response.WriteJSONError(w, log, http.StatusServiceUnavailable, "api_disabled", "Reporting API is disabled")
				default:
					log.Error("failed to validate token", slog.String("error", err.Error()))
					response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Internal error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, claims.Principal)
			ctx = context.WithValue(ctx, loggerKey, log.With(slog.String("principal", claims.Principal)))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetPrincipal(ctx context.Context) string {
	principal, ok := ctx.Value(principalKey).(string)
	if !ok {
		panic("principal not found in context - RequireAuth middleware not applied?")
	}
	return principal
}
