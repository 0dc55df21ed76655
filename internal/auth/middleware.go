package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain"
)

const actorKey = "auth.actor"

// Middleware rejects requests without a valid bearer token and stores the
// resolved actor on the gin context.
func Middleware(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		actor, err := r.ResolveActor(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalMiddleware resolves a bearer token when one is sent and lets
// anonymous requests through. A token that is present but invalid is still
// rejected.
func OptionalMiddleware(r *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}
		actor, err := r.ResolveActor(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor stored by Middleware.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}
