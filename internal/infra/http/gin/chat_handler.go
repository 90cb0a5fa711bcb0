package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"storeshare/internal/app/chat"
	domainbooking "storeshare/internal/domain/booking"
	"storeshare/internal/domain/messaging"
)

type ChatHandler struct {
	Router   *chat.Router
	Bookings domainbooking.Repository
}

type messageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	Kind           string    `json:"kind"`
	BookingID      string    `json:"booking_id,omitempty"`
	BookingStatus  string    `json:"booking_status,omitempty"`
	ListingTitle   string    `json:"listing_title,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func viewMessage(m messaging.Message) messageView {
	return messageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		Kind:           string(m.Kind),
		BookingID:      m.Metadata.BookingID,
		BookingStatus:  m.Metadata.BookingStatus,
		ListingTitle:   m.Metadata.ListingTitle,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

type summaryView struct {
	ConversationID string      `json:"conversation_id"`
	BookingID      string      `json:"booking_id"`
	BookingStatus  string      `json:"booking_status"`
	CounterpartID  string      `json:"counterpart_id"`
	ListingTitle   string      `json:"listing_title"`
	LastMessage    messageView `json:"last_message"`
	UnreadCount    int64       `json:"unread_count"`
}

func (h ChatHandler) Conversations(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	summaries, err := h.Router.UserConversations(c.Request.Context(), user, roleParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]summaryView, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryView{
			ConversationID: s.ConversationID,
			BookingID:      s.BookingID,
			BookingStatus:  string(s.BookingStatus),
			CounterpartID:  s.CounterpartID,
			ListingTitle:   s.ListingTitle,
			LastMessage:    viewMessage(s.LastMessage),
			UnreadCount:    s.UnreadCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

func (h ChatHandler) Messages(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")
	if _, ok := h.participant(c, conversationID, user); !ok {
		return
	}
	msgs, err := h.Router.Messages(c.Request.Context(), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, viewMessage(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h ChatHandler) Send(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conversationID := c.Param("id")
	b, ok := h.participant(c, conversationID, user)
	if !ok {
		return
	}
	if !chat.ChatEnabled(b.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "conversation is not open for this booking status"})
		return
	}
	msg, err := h.Router.Send(c.Request.Context(), chat.SendParams{
		ConversationID: conversationID,
		SenderID:       user,
		ReceiverID:     b.Counterpart(user),
		Content:        req.Content,
		Kind:           messaging.KindText,
		Metadata:       messaging.Metadata{BookingID: string(b.ID), BookingStatus: string(b.Status)},
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": viewMessage(*msg)})
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")
	if _, ok := h.participant(c, conversationID, user); !ok {
		return
	}
	if err := h.Router.MarkRead(c.Request.Context(), conversationID, user); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// participant resolves the conversation's booking and rejects callers who are
// neither the client nor the host.
func (h ChatHandler) participant(c *gin.Context, conversationID, userID string) (*domainbooking.Booking, bool) {
	bookingID, ok := messaging.BookingIDFromConversation(conversationID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown conversation"})
		return nil, false
	}
	b, err := h.Bookings.ByID(c.Request.Context(), domainbooking.BookingID(bookingID))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if b.ClientID != userID && b.HostID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return nil, false
	}
	return b, true
}

var _ ChatHTTP = ChatHandler{}
