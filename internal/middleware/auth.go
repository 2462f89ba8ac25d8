package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTClaims are the claims the shop reads from host issued tokens.
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	EmailKey  contextKey = "email"
	AdminKey  contextKey = "admin"
)

// AdminPredicate decides whether the request comes from a shop admin.
type AdminPredicate func(c echo.Context) (bool, error)

func parseBearer(c echo.Context, secret string) (*JWTClaims, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid token signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func setClaims(c echo.Context, claims *JWTClaims) {
	c.Set(string(UserIDKey), claims.UserID)
	c.Set(string(EmailKey), claims.Email)
	c.Set(string(AdminKey), claims.Admin)
}

func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseBearer(c, secret)
			if err != nil {
				return err
			}
			setClaims(c, claims)
			return next(c)
		}
	}
}

// OptionalJWTAuth records the caller's claims when a valid token is present
// and lets every request through.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if claims, err := parseBearer(c, secret); err == nil {
				setClaims(c, claims)
			}
			return next(c)
		}
	}
}

// AdminOnly guards admin routes. Without a predicate every request is let
// through.
func AdminOnly(isAdmin AdminPredicate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if isAdmin == nil {
			return next
		}
		return func(c echo.Context) error {
			ok, err := isAdmin(c)
			if err != nil {
				return err
			}
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// ClaimsAdmin is an AdminPredicate backed by the admin claim. It must run
// after JWTAuth or OptionalJWTAuth.
func ClaimsAdmin(c echo.Context) (bool, error) {
	admin, _ := c.Get(string(AdminKey)).(bool)
	return admin, nil
}

func GetUserID(c echo.Context) (uint, bool) {
	userID, ok := c.Get(string(UserIDKey)).(uint)
	return userID, ok
}

func GetEmail(c echo.Context) (string, bool) {
	email, ok := c.Get(string(EmailKey)).(string)
	return email, ok && email != ""
}
