package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"report-workflow-service/models"
)

const (
	// ContextActorID is the gin context key carrying the authenticated actor id.
	ContextActorID = "actor_id"
	// ContextActorRole is the gin context key carrying the actor's role.
	ContextActorRole = "actor_role"
)

// AuthMiddleware validates JWT bearer tokens and stores the actor identity
// in the request context for handlers.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		tokenString := extractToken(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid authorization format"})
			c.Abort()
			return
		}

		actor, err := parseActor(tokenString, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextActorID, actor.ID)
		c.Set(ContextActorRole, string(actor.Role))
		c.Next()
	}
}

// CurrentActor reads the authenticated actor placed in the context by
// AuthMiddleware.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	id := c.GetString(ContextActorID)
	role := models.ActorRole(c.GetString(ContextActorRole))
	if id == "" || !role.Valid() {
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: role}, true
}

// extractToken extracts the token from the Authorization header.
func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return ""
	}
	return parts[1]
}

// parseActor verifies the token signature and pulls the actor id and role
// out of the claims. Tokens without a recognized role default to citizen:
// an unexpected claim must never grant staff permissions.
func parseActor(tokenString string, secret []byte) (models.Actor, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return models.Actor{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return models.Actor{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Actor{}, fmt.Errorf("token missing subject")
	}

	role := models.ActorRole(fmt.Sprint(claims["role"]))
	if !role.Valid() {
		role = models.RoleCitizen
	}

	return models.Actor{ID: sub, Role: role}, nil
}
