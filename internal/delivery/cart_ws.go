package delivery

import (
	"context"
	"time"

	"storefront_service/internal/domain"

	"github.com/gin-gonic/gin"
)

const wsWriteTimeout = 5 * time.Second

// Watch upgrades to a websocket and streams the session's cart view: the
// current view first, then one message per committed change, in order.
// Messages sent by the client are ignored; the stream ends when the client
// disconnects or a write fails.
func (h *CartHandler) Watch(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("Failed to upgrade cart websocket: %v", err)
		return
	}
	defer conn.Close()

	id := sessionID(c)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Only the subscription goroutine writes to conn.
	unsubscribe := h.useCase.Subscribe(c.Request.Context(), id, func(view domain.CartView) {
		if ctx.Err() != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(view); err != nil {
			h.log.Debugf("Cart websocket write failed for session %s: %v", id, err)
			cancel()
			conn.Close()
		}
	})
	defer unsubscribe()
	h.log.Infof("Cart websocket opened for session %s", id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.log.Infof("Cart websocket closed for session %s", id)
}
