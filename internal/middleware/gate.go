package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"expressconnect/internal/gate"
)

// Gate enforces the authorization decision for every request, including
// ones that end up unrouted.
func Gate(g *gate.Gate, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		d := g.Authorize(c.Request.URL.Path, claims)

		switch d.Action {
		case gate.Forward:
			c.Next()
		case gate.Redirect:
			event := log.Debug().
				Str("path", c.Request.URL.Path).
				Str("location", d.Location).
				Str("request_id", c.Writer.Header().Get(requestIDHeader))
			if d.Reason != nil {
				event = event.Str("reason", d.Reason.Error())
			}
			if claims != nil {
				event = event.Str("account_id", claims.ID)
			}
			event.Msg("gate redirect")
			c.Redirect(d.Status, d.Location)
			c.Abort()
		default:
			status := d.Status
			if status == 0 {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "unauthorized"})
		}
	}
}
