package handlers

import (
	"net/http"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ConversationHandler serves the aggregated sidebar and pin/unpin.
type ConversationHandler struct {
	Service *chat.Service
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.MustUserID(c)

	sums, err := h.Service.Conversations(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sums})
}

func (h *ConversationHandler) Pin(c *gin.Context) {
	h.setPinned(c, true)
}

func (h *ConversationHandler) Unpin(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *ConversationHandler) setPinned(c *gin.Context, pinned bool) {
	userID := middleware.MustUserID(c)

	ctype := c.Param("type")
	convID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var err error
	if pinned {
		err = h.Service.Pin(c.Request.Context(), userID, ctype, convID)
	} else {
		err = h.Service.Unpin(c.Request.Context(), userID, ctype, convID)
	}
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pinned": pinned})
}
