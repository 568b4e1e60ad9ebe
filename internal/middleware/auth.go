package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/shipops/pkg/httpcontext"
)

// Claims is the token payload issued to operators.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var unauthorizedBody = []byte(`{"status":"error","code":"UNAUTHORIZED","error":"invalid or missing token"}`)

// JWTAuth validates HMAC bearer tokens and forwards the user_id and email
// claims to handlers as identity headers. Client supplied identity headers
// are always discarded.
func JWTAuth(secret string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.Request.Header.Del(httpcontext.HeaderUserID)
			ctx.Request.Header.Del(httpcontext.HeaderUserEmail)

			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx)
				return
			}

			var claims Claims
			token, err := parser.ParseWithClaims(tokenString, &claims, keyFunc)
			if err != nil || !token.Valid || claims.UserID == "" {
				logger.Warn("invalid jwt token", zap.ByteString("path", ctx.Path()), zap.Error(err))
				unauthorized(ctx)
				return
			}

			ctx.Request.Header.Set(httpcontext.HeaderUserID, claims.UserID)
			if claims.Email != "" {
				ctx.Request.Header.Set(httpcontext.HeaderUserEmail, claims.Email)
			}
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBody(unauthorizedBody)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
