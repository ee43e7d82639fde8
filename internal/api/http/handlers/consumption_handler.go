package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-ops/internal/api/dto"
	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
	"github.com/spec-kit/hotel-ops/internal/service"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// ConsumptionHandler exposes the consumable usage ledger.
type ConsumptionHandler struct {
	service *service.ConsumptionService
	loc     *time.Location
	now     func() time.Time
}

// NewConsumptionHandler constructs handler. loc resolves the default day.
func NewConsumptionHandler(consumptionService *service.ConsumptionService, loc *time.Location) *ConsumptionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ConsumptionHandler{service: consumptionService, loc: loc, now: time.Now}
}

// Record POST /consumption.
func (h *ConsumptionHandler) Record(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RecordConsumptionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Source == "" {
		req.Source = domain.SourceStaff
	}
	staffID := principal.Staff.ID
	result, err := h.service.Record(c.UserContext(), service.RecordInput{
		OrganizationID: principal.Staff.OrganizationID,
		RoomID:         req.RoomID,
		ItemID:         req.ItemID,
		Quantity:       req.Quantity,
		Source:         req.Source,
		RecordedBy:     &staffID,
	})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if result.Outcome == repository.UpsertInserted {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.RecordConsumptionResponse{
		Outcome: string(result.Outcome),
		Record:  recordResponse(&result.Record),
	}})
}

// RoomStay GET /consumption/rooms/:roomId/stay?date=.
func (h *ConsumptionHandler) RoomStay(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	day, err := h.parseDay(c)
	if err != nil {
		return err
	}
	usage, err := h.service.ForStay(c.UserContext(), principal.Staff.OrganizationID, c.Params("roomId"), day)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stayResponse(usage)})
}

// HotelStay GET /consumption/hotels/:hotelId/stay?date=.
func (h *ConsumptionHandler) HotelStay(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	day, err := h.parseDay(c)
	if err != nil {
		return err
	}
	usages, err := h.service.ForHotelStay(c.UserContext(), principal.Staff.OrganizationID, c.Params("hotelId"), day)
	if err != nil {
		return err
	}
	items := make([]dto.StayUsageResponse, 0, len(usages))
	for i := range usages {
		items = append(items, stayResponse(&usages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ClearPreviousDay POST /consumption/hotels/:hotelId/clear-previous-day.
func (h *ConsumptionHandler) ClearPreviousDay(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	res, err := h.service.ClearPreviousDay(c.UserContext(), principal.Staff.OrganizationID, c.Params("hotelId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ClearResponse{
		HotelID: res.HotelID,
		From:    res.From,
		To:      res.To,
		Cleared: res.Cleared,
	}})
}

func (h *ConsumptionHandler) parseDay(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	day, err := apperrors.ParseDay(raw, h.now(), h.loc)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("date must be YYYY-MM-DD", map[string]any{"date": raw})
	}
	return day, nil
}

func recordResponse(rec *domain.ConsumptionRecord) dto.ConsumptionRecordResponse {
	return dto.ConsumptionRecordResponse{
		ID:         rec.ID,
		RoomID:     rec.RoomID,
		ItemID:     rec.ItemID,
		ItemName:   rec.ItemName,
		ItemPrice:  rec.ItemPrice.StringFixed(2),
		Quantity:   rec.Quantity,
		LineTotal:  rec.LineTotal().StringFixed(2),
		Source:     rec.Source,
		UsageDate:  rec.UsageDate.Format(time.DateOnly),
		UsedAt:     rec.UsedAt,
		IsCleared:  rec.IsCleared,
		ClearedAt:  rec.ClearedAt,
		RecordedBy: rec.RecordedBy,
	}
}

func stayResponse(usage *domain.StayUsage) dto.StayUsageResponse {
	records := make([]dto.ConsumptionRecordResponse, 0, len(usage.Records))
	for i := range usage.Records {
		records = append(records, recordResponse(&usage.Records[i]))
	}
	return dto.StayUsageResponse{
		RoomID: usage.RoomID,
		Window: dto.StayWindowResponse{
			From:   usage.Window.From.Format(time.DateOnly),
			To:     usage.Window.To.Format(time.DateOnly),
			Nights: usage.Window.Nights,
		},
		Records: records,
		Total:   usage.Total.StringFixed(2),
	}
}
