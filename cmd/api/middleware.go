package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"godsendjoseph.dev/gaushala-api/internal/auth"
)

const claimsCtx contextKey = "claims"

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !app.config.auth.enabled {
			next.ServeHTTP(writer, request)
			return
		}

		authHeader := request.Header.Get("Authorization")
		if authHeader == "" {
			app.unauthorizedErrorResponse(writer, request, fmt.Errorf("missing auth header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			app.unauthorizedErrorResponse(writer, request, fmt.Errorf("invalid auth header"))
			return
		}

		jwtToken, err := app.authenticator.ValidateToken(parts[1])
		if errors.Is(err, auth.ErrRoleNotAllowed) {
			app.forbiddenResponseError(writer, request)
			return
		}
		if err != nil {
			app.unauthorizedErrorResponse(writer, request, err)
			return
		}

		ctx := context.WithValue(request.Context(), claimsCtx, jwtToken.Claims)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if app.config.rateLimiter.Enabled {
			if allow, retryAfter := app.rateLimiter.Allow(clientIP(request)); !allow {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				app.rateLimitExceededResponse(writer, request, strconv.Itoa(seconds))
				return
			}
		}
		next.ServeHTTP(writer, request)
	})
}

// clientIP is RemoteAddr without the port. RealIP runs first, so proxied
// requests already carry the forwarded address.
func clientIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
