package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"carwash-app/wash-service/internal/models"
	"carwash-app/wash-service/internal/services"
	"carwash-app/wash-service/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubscriptionService interface {
	StartPackage(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (time.Time, time.Time, error)
	AdminOverride(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, newStart, newEnd time.Time) error
	RunAutoRenewOnce(ctx context.Context) (int, error)
}

type WashLogService interface {
	GetCountsAndMaybeRenew(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID) (models.WashCounts, error)
	CompleteScheduledWash(ctx context.Context, in services.CompleteWashInput) (*models.WashLog, error)
	CancelWash(ctx context.Context, logID primitive.ObjectID) (models.WashCounts, error)
	GetWashHistory(ctx context.Context, customerID primitive.ObjectID, month, year int) ([]models.WashLog, error)
}

type AgendaBuilder interface {
	BuildAgenda(ctx context.Context, customerID primitive.ObjectID, vehicleID *primitive.ObjectID, mode services.RangeMode, monthAnchor time.Time) ([]models.DayEntry, error)
}

type PackageLister interface {
	GetActive(ctx context.Context) ([]models.Package, error)
}

type WashHandler struct {
	subscriptions SubscriptionService
	washLogs      WashLogService
	agenda        AgendaBuilder
	packages      PackageLister
}

func NewWashHandler(subscriptions SubscriptionService, washLogs WashLogService, agenda AgendaBuilder, packages PackageLister) *WashHandler {
	return &WashHandler{
		subscriptions: subscriptions,
		washLogs:      washLogs,
		agenda:        agenda,
		packages:      packages,
	}
}

// respondError отображает доменные ошибки в HTTP-статусы.
func respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ParseErrors(err)})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidID), errors.Is(err, models.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrAlreadyStarted), errors.Is(err, models.ErrAlreadyCompleted), errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrQuotaExceeded), errors.Is(err, models.ErrOutOfWindow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// vehicleIDQuery читает опциональный vehicleId из query (пусто — легаси
// клиент или единственная машина).
func vehicleIDQuery(c *gin.Context) (*primitive.ObjectID, bool) {
	hex := c.Query("vehicleId")
	if hex == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicleId"})
		return nil, false
	}
	return &id, true
}

func parseDay(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// POST /api/wash/customers/:id/vehicles/:vehicleId/start-package
func (h *WashHandler) StartPackage(c *gin.Context) {
	customerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var vehicleID *primitive.ObjectID
	if hex := c.Param("vehicleId"); hex != "" && hex != "-" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicleId"})
			return
		}
		vehicleID = &id
	}

	start, end, err := h.subscriptions.StartPackage(c.Request.Context(), customerID, vehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "package started",
		"start_date": start,
		"end_date":   end,
	})
}

// GET /api/wash/customers/:id/counts?vehicleId=
func (h *WashHandler) GetCounts(c *gin.Context) {
	customerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	vehicleID, ok := vehicleIDQuery(c)
	if !ok {
		return
	}

	counts, err := h.washLogs.GetCountsAndMaybeRenew(c.Request.Context(), customerID, vehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GET /api/wash/customers/:id/agenda?vehicleId=&range=month|window&month=YYYY-MM
func (h *WashHandler) GetAgenda(c *gin.Context) {
	customerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	vehicleID, ok := vehicleIDQuery(c)
	if !ok {
		return
	}

	mode := services.RangeMonth
	if c.Query("range") == string(services.RangeWindow) {
		mode = services.RangeWindow
	}

	anchor := time.Now().UTC()
	if monthStr := c.Query("month"); monthStr != "" {
		parsed, err := time.Parse("2006-01", monthStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
			return
		}
		anchor = parsed
	}

	agenda, err := h.agenda.BuildAgenda(c.Request.Context(), customerID, vehicleID, mode, anchor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agenda": agenda, "total_days": len(agenda)})
}

// POST /api/wash/complete
func (h *WashHandler) CompleteWash(c *gin.Context) {
	var in struct {
		CustomerID    string `json:"customer_id"    binding:"required"`
		VehicleID     string `json:"vehicle_id"`
		WasherID      string `json:"washer_id"      binding:"required"`
		ScheduledDate string `json:"scheduled_date" binding:"required"`
		WashType      string `json:"wash_type"      binding:"omitempty,oneof=exterior both"`
		Notes         string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, err)
		return
	}

	customerID, err := primitive.ObjectIDFromHex(in.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
		return
	}
	washerID, err := primitive.ObjectIDFromHex(in.WasherID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid washer_id"})
		return
	}
	var vehicleID *primitive.ObjectID
	if in.VehicleID != "" {
		id, err := primitive.ObjectIDFromHex(in.VehicleID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle_id"})
			return
		}
		vehicleID = &id
	}
	scheduledDate, err := parseDay(in.ScheduledDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_date must be YYYY-MM-DD"})
		return
	}

	entry, err := h.washLogs.CompleteScheduledWash(c.Request.Context(), services.CompleteWashInput{
		CustomerID:    customerID,
		VehicleID:     vehicleID,
		WasherID:      washerID,
		ScheduledDate: scheduledDate,
		WashType:      models.WashType(in.WashType),
		Notes:         in.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "wash completed", "wash_log": entry})
}

// POST /api/wash/cancel/:logId
func (h *WashHandler) CancelWash(c *gin.Context) {
	logID, ok := parseID(c, "logId")
	if !ok {
		return
	}

	counts, err := h.washLogs.CancelWash(c.Request.Context(), logID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "wash cancelled", "counts": counts})
}

// GET /api/wash/customers/:id/history?month=&year=
func (h *WashHandler) GetWashHistory(c *gin.Context) {
	customerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	month, _ := strconv.Atoi(c.Query("month"))
	year, _ := strconv.Atoi(c.Query("year"))

	history, err := h.washLogs.GetWashHistory(c.Request.Context(), customerID, month, year)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = make([]models.WashLog, 0)
	}
	c.JSON(http.StatusOK, gin.H{"wash_history": history, "total_washes": len(history)})
}

// GET /api/wash/packages
func (h *WashHandler) GetPackages(c *gin.Context) {
	packages, err := h.packages.GetActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if packages == nil {
		packages = make([]models.Package, 0)
	}
	c.JSON(http.StatusOK, packages)
}

// POST /api/wash/admin/auto-renew
func (h *WashHandler) RunAutoRenew(c *gin.Context) {
	renewed, err := h.subscriptions.RunAutoRenewOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renewed": renewed})
}

// PUT /api/wash/admin/customers/:id/window?vehicleId=
func (h *WashHandler) AdminOverrideWindow(c *gin.Context) {
	customerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	vehicleID, ok := vehicleIDQuery(c)
	if !ok {
		return
	}

	var in struct {
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date"   binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, err)
		return
	}
	start, err := parseDay(in.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := parseDay(in.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	if err := h.subscriptions.AdminOverride(c.Request.Context(), customerID, vehicleID, start, end); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "window updated"})
}
