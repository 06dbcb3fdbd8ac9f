package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pickpoint/internal/apperrors"
	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
	"pickpoint/internal/services"
)

type AdminHandler struct {
	packageService  services.PackageService
	locationService services.LocationService
	reportService   services.ReportService
	reminderService services.ReminderService
	logger          *logging.Logger
}

func NewAdminHandler(
	packageService services.PackageService,
	locationService services.LocationService,
	reportService services.ReportService,
	reminderService services.ReminderService,
	logger *logging.Logger,
) *AdminHandler {
	return &AdminHandler{
		packageService:  packageService,
		locationService: locationService,
		reportService:   reportService,
		reminderService: reminderService,
		logger:          logger.WithComponent("admin"),
	}
}

func (h *AdminHandler) CreateLocation(c *gin.Context) {
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	created, err := h.locationService.Create(c.Request.Context(), &loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *AdminHandler) UpdateLocation(c *gin.Context) {
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	updated, err := h.locationService.Update(c.Request.Context(), c.Param("id"), &loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) DeletePackage(c *gin.Context) {
	if err := h.packageService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RevenueReport accepts from/to as RFC 3339 timestamps or plain dates.
func (h *AdminHandler) RevenueReport(c *gin.Context) {
	filter := repository.RevenueFilter{LocationID: c.Query("locationId")}

	var err error
	if filter.From, err = parseReportTime(c.Query("from")); err != nil {
		respondError(c, h.logger, apperrors.Validation("from must be a date").WithDetail("from", c.Query("from")))
		return
	}
	if filter.To, err = parseReportTime(c.Query("to")); err != nil {
		respondError(c, h.logger, apperrors.Validation("to must be a date").WithDetail("to", c.Query("to")))
		return
	}

	report, err := h.reportService.Revenue(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AdminHandler) RunReminders(c *gin.Context) {
	run, err := h.reminderService.SendStorageReminders(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func parseReportTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, wib)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

var wib = time.FixedZone("WIB", 7*60*60)
