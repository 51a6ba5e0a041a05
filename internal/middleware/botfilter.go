package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Kaglioster-hub/vrabo/internal/tracker"
)

// IsBotKey is the context key BotFilter sets for bot user agents.
const IsBotKey = "is_bot"

// BotFilter sets c.Set(IsBotKey, true) for bot user agents. The request
// still reaches the handler, which redirects as usual but flags the event.
func BotFilter(matcher *tracker.BotMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		if matcher.IsBot(c.Request.UserAgent()) {
			c.Set(IsBotKey, true)
		}
		c.Next()
	}
}
