package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"storeshare/internal/app/notify"
)

type NotificationHandler struct {
	Dispatcher *notify.Dispatcher
}

type notificationView struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	ConversationID string    `json:"conversation_id"`
	BookingID      string    `json:"booking_id,omitempty"`
	BookingStatus  string    `json:"booking_status,omitempty"`
	ListingTitle   string    `json:"listing_title,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h NotificationHandler) ListMine(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	notifications, err := h.Dispatcher.ListForUser(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]notificationView, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationView{
			ID:             n.ID,
			Kind:           string(n.Kind),
			ConversationID: n.ConversationID,
			BookingID:      n.Payload.BookingID,
			BookingStatus:  n.Payload.BookingStatus,
			ListingTitle:   n.Payload.ListingTitle,
			IsRead:         n.IsRead,
			CreatedAt:      n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

var _ NotificationHTTP = NotificationHandler{}
