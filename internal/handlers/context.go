package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/models"
)

// getClaimsFromContext returns the JWT claims stored by the auth middleware,
// or nil when the request is unauthenticated.
func getClaimsFromContext(c echo.Context) *models.JwtCustomClaims {
	claims, _ := c.Get("user").(*models.JwtCustomClaims)
	return claims
}

// getUserIDFromContext returns the authenticated user's id, or 0.
func getUserIDFromContext(c echo.Context) uint {
	if claims := getClaimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return 0
}

// parseUserIDParam parses a numeric user-id path parameter.
func parseUserIDParam(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
