package ginserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbooking "storeshare/internal/app/booking"
	"storeshare/internal/app/chat"
	"storeshare/internal/app/ledger"
	"storeshare/internal/app/notify"
	"storeshare/internal/config"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/pricing"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/money"
	"storeshare/internal/infra/storage/memory"
	"storeshare/internal/obs"
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type feePercent float64

func (f feePercent) FeePercent() float64 { return float64(f) }

type testApp struct {
	handler  http.Handler
	bookings *memory.BookingRepository
	svc      *appbooking.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	listings := memory.NewListingRepository()
	bookings := memory.NewBookingRepository()
	messages := memory.NewMessageRepository()
	notifications := memory.NewNotificationRepository()
	box := memory.NewOutbox()

	dispatcher := notify.NewDispatcher(notifications, nil)
	router := chat.NewRouter(messages, bookings, listings, dispatcher, nil).
		WithClock(func() time.Time { return now })
	ledgerSvc := ledger.New(listings, box, nil, ledger.Config{MaxAttempts: 3, BackoffBase: time.Millisecond}).
		WithClock(func() time.Time { return now })
	svc := appbooking.NewService(bookings, listings, ledgerSvc, pricing.NewCalculator(feePercent(10)), router, box, nil, appbooking.Config{}).
		WithClock(func() time.Time { return now })

	bookable, err := daterange.New(now, now.AddDate(0, 1, 0))
	require.NoError(t, err)
	l, err := domainlisting.New(domainlisting.CreateParams{
		ID:        "l-1",
		OwnerID:   "host-1",
		Title:     "Attic space",
		Price:     money.Must(150, "USD"),
		Bookable:  bookable,
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, listings.Save(context.Background(), l))

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:      BookingHandler{Service: svc},
		Chat:         ChatHandler{Router: router, Bookings: bookings},
		Notification: NotificationHandler{Dispatcher: dispatcher},
	})
	return &testApp{handler: server.Handler, bookings: bookings, svc: svc}
}

func (a *testApp) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func createBody(startOffset, endOffset int) string {
	start := now.AddDate(0, 0, startOffset).Format(time.RFC3339)
	end := now.AddDate(0, 0, endOffset).Format(time.RFC3339)
	return fmt.Sprintf(`{"listing_id":"l-1","start_date":%q,"end_date":%q}`, start, end)
}

func (a *testApp) createBooking(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/bookings", "client-1", createBody(3, 9))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Booking struct {
			ID string `json:"id"`
		} `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Booking.ID
}

func TestCreateBookingReturnsBreakdown(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "client-1", createBody(3, 9))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Booking struct {
			Status string `json:"status"`
			Total  struct {
				Amount int64 `json:"amount"`
			} `json:"total"`
		} `json:"booking"`
		Breakdown struct {
			Days int `json:"days"`
			Fee  struct {
				Amount int64 `json:"amount"`
			} `json:"platform_fee"`
		} `json:"breakdown"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Booking.Status)
	assert.Equal(t, int64(165), resp.Booking.Total.Amount)
	assert.Equal(t, 7, resp.Breakdown.Days)
	assert.Equal(t, int64(15), resp.Breakdown.Fee.Amount)
}

func TestCreateBookingRequiresIdentity(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "", createBody(3, 9))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBookingUnknownListingIs404(t *testing.T) {
	app := newTestApp(t)
	body := strings.Replace(createBody(3, 9), "l-1", "l-404", 1)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "client-1", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingConflictIs409(t *testing.T) {
	app := newTestApp(t)
	app.createBooking(t)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "client-2", createBody(5, 12))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateBookingInvertedRangeIs400(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "client-1", createBody(9, 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmAndDoubleConfirm(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(t)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", "host-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", "host-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelInsideWindowIs422(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/v1/bookings", "client-1", createBody(0, 5))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Booking struct {
			ID string `json:"id"`
		} `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = app.do(t, http.MethodPost, "/api/v1/bookings/"+resp.Booking.ID+"/cancel", "client-1", `{"reason":"too late"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCancelOutsideWindowSucceeds(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(t)

	rec := app.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/cancel", "client-1", `{"reason":"plans changed"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListMineGroupsBookings(t *testing.T) {
	app := newTestApp(t)
	app.createBooking(t)

	rec := app.do(t, http.MethodGet, "/api/v1/me/bookings", "client-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Bookings map[string][]struct {
			ID        string `json:"id"`
			CanCancel bool   `json:"can_cancel"`
		} `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Bookings["pending"], 1)
	assert.True(t, resp.Bookings["pending"][0].CanCancel)
}

func TestConversationFlow(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(t)
	rec := app.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", "host-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	conversationID := "booking_" + id

	// The system update opened the conversation; the client replies.
	rec = app.do(t, http.MethodPost, "/api/v1/conversations/"+conversationID+"/messages", "client-1", `{"content":"thanks!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/api/v1/conversations?role=host", "host-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var convResp struct {
		Conversations []struct {
			ConversationID string `json:"conversation_id"`
			UnreadCount    int64  `json:"unread_count"`
		} `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convResp))
	require.Len(t, convResp.Conversations, 1)
	assert.Equal(t, conversationID, convResp.Conversations[0].ConversationID)
	assert.Positive(t, convResp.Conversations[0].UnreadCount)

	rec = app.do(t, http.MethodPost, "/api/v1/conversations/"+conversationID+"/read", "host-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/conversations?role=host", "host-1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convResp))
	require.Len(t, convResp.Conversations, 1)
	assert.Zero(t, convResp.Conversations[0].UnreadCount)
}

func TestSendMessageOnPendingBookingIs409(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(t)

	rec := app.do(t, http.MethodPost, "/api/v1/conversations/booking_"+id+"/messages", "client-1", `{"content":"hello"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendMessageByStrangerIs403(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(t)
	rec := app.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/confirm", "host-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/v1/conversations/booking_"+id+"/messages", "stranger", `{"content":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMessagesUnknownConversationIs404(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/v1/conversations/support_1/messages", "client-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/conversations/booking_missing/messages", "client-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationsList(t *testing.T) {
	app := newTestApp(t)
	app.createBooking(t)

	rec := app.do(t, http.MethodGet, "/api/v1/me/notifications", "host-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Notifications []struct {
			Kind          string `json:"kind"`
			BookingStatus string `json:"booking_status"`
		} `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "booking_update", resp.Notifications[0].Kind)
	assert.Equal(t, "pending", resp.Notifications[0].BookingStatus)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/livez", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
