package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"

	"cabdispatch/internal/auth"
)

// NewRelicAttributes annotates the transaction started by nrgin with the
// caller and the booking or vehicle being acted on, and reports handler
// errors. Without an active transaction it does nothing.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if a, ok := auth.ActorFrom(c); ok {
			txn.AddAttribute("actor.id", a.ID)
		}
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("resource.id", id)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
