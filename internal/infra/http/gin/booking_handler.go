package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	appbooking "storeshare/internal/app/booking"
	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/pricing"
	"storeshare/internal/domain/shared/money"
)

type BookingHandler struct {
	Service *appbooking.Service
}

type createBookingRequest struct {
	ListingID string    `json:"listing_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

type moneyView struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func viewMoney(m money.Money) moneyView {
	return moneyView{Amount: m.Amount, Currency: m.Currency}
}

type breakdownView struct {
	StorageFee  moneyView `json:"storage_fee"`
	PlatformFee moneyView `json:"platform_fee"`
	Total       moneyView `json:"total"`
	PricePerDay moneyView `json:"price_per_day"`
	Days        int       `json:"days"`
}

func viewBreakdown(b pricing.Breakdown) breakdownView {
	return breakdownView{
		StorageFee:  viewMoney(b.StorageFee),
		PlatformFee: viewMoney(b.PlatformFee),
		Total:       viewMoney(b.Total),
		PricePerDay: viewMoney(b.PricePerDay),
		Days:        b.Days,
	}
}

type bookingView struct {
	ID                  string    `json:"id"`
	ListingID           string    `json:"listing_id"`
	ClientID            string    `json:"client_id"`
	HostID              string    `json:"host_id"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	Status              string    `json:"status"`
	StorageFee          moneyView `json:"storage_fee"`
	PlatformFee         moneyView `json:"platform_fee"`
	Total               moneyView `json:"total"`
	CancellationReason  string    `json:"cancellation_reason,omitempty"`
	CanCancel           bool      `json:"can_cancel"`
	CancellationMessage string    `json:"cancellation_message,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func (h BookingHandler) view(b *domainbooking.Booking) bookingView {
	return bookingView{
		ID:                  string(b.ID),
		ListingID:           string(b.ListingID),
		ClientID:            b.ClientID,
		HostID:              b.HostID,
		StartDate:           b.Range.Start,
		EndDate:             b.Range.End,
		Status:              string(b.Status),
		StorageFee:          viewMoney(b.StorageFee),
		PlatformFee:         viewMoney(b.PlatformFee),
		Total:               viewMoney(b.Total),
		CancellationReason:  b.CancellationReason,
		CanCancel:           h.Service.CanCancel(b),
		CancellationMessage: h.Service.CancellationMessage(b),
		CreatedAt:           b.CreatedAt,
	}
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Service.Create(c.Request.Context(), appbooking.CreateInput{
		ListingID: domainlisting.ListingID(req.ListingID),
		ClientID:  user,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"booking":   h.view(result.Booking),
		"breakdown": viewBreakdown(result.Breakdown),
	})
}

func (h BookingHandler) Confirm(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	id := domainbooking.BookingID(c.Param("id"))
	if err := h.Service.Confirm(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := domainbooking.BookingID(c.Param("id"))
	if err := h.Service.Cancel(c.Request.Context(), id, user, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	grouped, err := h.Service.ListForUser(c.Request.Context(), user, roleParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make(map[string][]bookingView, len(grouped))
	for status, bookings := range grouped {
		views := make([]bookingView, 0, len(bookings))
		for _, b := range bookings {
			views = append(views, h.view(b))
		}
		out[string(status)] = views
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

var _ BookingHTTP = BookingHandler{}
