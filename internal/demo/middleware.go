// Package demo implements read-only mode for public demo deployments of the
// library, typically backed by a database from cmd/generate_demo.
package demo

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyDemoMode is set on every request so handlers can report the mode.
const ContextKeyDemoMode = "demo_mode"

const blockedMessage = "This action is disabled in demo mode"

// Paths that accept writes even in demo mode: signing in and out.
var allowedWritePrefixes = []string{
	"/api/auth/",
}

// Middleware blocks every state-changing request while demo mode is on.
// Visitors can browse the catalog, loans and notifications but cannot lend,
// return or delete anything.
type Middleware struct {
	enabled bool
}

func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler returns a Gin middleware that rejects writes with 403.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyDemoMode, m.enabled)

		if !m.enabled || isReadOnlyMethod(c.Request.Method) || isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":     blockedMessage,
			"demo_mode": true,
		})
	}
}

func isReadOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isAllowedPath(path string) bool {
	for _, prefix := range allowedWritePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
