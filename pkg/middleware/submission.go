package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"shop-api/pkg/guard"
)

// SubmissionGuard blocks duplicate in-flight submissions of the same
// logical request. The coarse per-principal lock trips first; the
// fingerprint lock catches identical payloads racing past it. Must run
// after RequireAuth so the principal is known.
func SubmissionGuard(g *guard.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := c.GetString(UserIDKey)
		if principal == "" {
			principal = c.ClientIP()
		}

		if err := g.BeginSession(principal); err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		defer g.EndSession(principal)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		fp := guard.Fingerprint(c.Request.Method+" "+c.FullPath(), body)
		if err := g.Begin(fp); err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		defer g.End(fp)

		c.Next()
	}
}
