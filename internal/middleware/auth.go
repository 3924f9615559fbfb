package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"project-review-api/internal/domain"
	"project-review-api/internal/response"
)

// actorKey is the gin context key the authenticated actor is stored under
const actorKey = "actor"

// Auth returns a middleware that validates the Bearer token and stores the
// resulting domain.Actor in the request context. Claims carry the user id,
// the reviewer role, and the granted review areas.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFromClaims builds the domain actor from JWT claims. "user_id" and
// "sub" are both accepted for the subject.
func actorFromClaims(claims jwt.MapClaims) (domain.Actor, error) {
	var userIDStr string
	if uid, ok := claims["user_id"].(string); ok {
		userIDStr = uid
	} else if sub, ok := claims["sub"].(string); ok {
		userIDStr = sub
	} else {
		return domain.Actor{}, errMissingSubject
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return domain.Actor{}, errInvalidSubject
	}

	actor := domain.Actor{
		ID:   userID,
		Role: domain.RoleReviewer,
	}

	if role, ok := claims["role"].(string); ok && role != "" {
		actor.Role = domain.ReviewerRole(role)
	}

	if rawAreas, ok := claims["areas"].([]interface{}); ok {
		for _, raw := range rawAreas {
			if area, ok := raw.(string); ok {
				actor.Areas = append(actor.Areas, domain.ReviewArea(area))
			}
		}
	}

	return actor, nil
}

// GetActor retrieves the authenticated actor stored by Auth
func GetActor(c *gin.Context) (domain.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return domain.Actor{}, false
	}
	actor, ok := value.(domain.Actor)
	return actor, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, message)
	c.Abort()
}

type claimError string

func (e claimError) Error() string { return string(e) }

const (
	errMissingSubject claimError = "User ID not found in token"
	errInvalidSubject claimError = "Invalid user ID format"
)
