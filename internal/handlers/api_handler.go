package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pickpoint/internal/logging"
	"pickpoint/internal/models"
	"pickpoint/internal/repository"
	"pickpoint/internal/services"
	"pickpoint/pkg/whatsapp"
)

type APIHandler struct {
	packageService     services.PackageService
	locationService    services.LocationService
	customerService    services.CustomerService
	paymentLinkService services.PaymentLinkService
	logger             *logging.Logger
}

func NewAPIHandler(
	packageService services.PackageService,
	locationService services.LocationService,
	customerService services.CustomerService,
	paymentLinkService services.PaymentLinkService,
	logger *logging.Logger,
) *APIHandler {
	return &APIHandler{
		packageService:     packageService,
		locationService:    locationService,
		customerService:    customerService,
		paymentLinkService: paymentLinkService,
		logger:             logger.WithComponent("api"),
	}
}

type packageIDsRequest struct {
	PackageIDs []string `json:"packageIds" binding:"required"`
}

type pickupRequest struct {
	ExpectedFee *int64 `json:"expectedFee"`
}

type markPaidRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type paymentLinkRequest struct {
	Notify bool `json:"notify"`
}

type customerRequest struct {
	Name string `json:"name"`
}

type membershipRequest struct {
	LocationID string `json:"locationId" binding:"required"`
}

// Packages

func (h *APIHandler) CreatePackage(c *gin.Context) {
	var req services.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	pkg, err := h.packageService.Intake(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

func (h *APIHandler) ListPackages(c *gin.Context) {
	filter := repository.PackageFilter{
		LocationID: c.Query("locationId"),
		Status:     models.PackageStatus(strings.ToUpper(c.Query("status"))),
	}
	if phone := c.Query("phone"); phone != "" {
		filter.RecipientPhone = whatsapp.NormalizePhone(phone)
	}

	views, err := h.packageService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": views, "count": len(views)})
}

func (h *APIHandler) GetPackage(c *gin.Context) {
	pkg, err := h.packageService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *APIHandler) PreviewFee(c *gin.Context) {
	preview, err := h.packageService.PreviewFee(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *APIHandler) PreviewBulkFee(c *gin.Context) {
	var req packageIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	preview, err := h.packageService.PreviewBulkFee(c.Request.Context(), req.PackageIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Pickup accepts an empty body; expectedFee is optional.
func (h *APIHandler) Pickup(c *gin.Context) {
	var req pickupRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.packageService.Pickup(c.Request.Context(), c.Param("id"), req.ExpectedFee)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) BulkPickup(c *gin.Context) {
	var req packageIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	result, err := h.packageService.BulkPickup(c.Request.Context(), req.PackageIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) MarkPaid(c *gin.Context) {
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	pkg, err := h.packageService.MarkPaid(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *APIHandler) Destroy(c *gin.Context) {
	pkg, err := h.packageService.Destroy(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *APIHandler) CreatePaymentLink(c *gin.Context) {
	var req paymentLinkRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	link, err := h.paymentLinkService.Create(c.Request.Context(), c.Param("id"), req.Notify)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// Payment links

func (h *APIHandler) ResolvePaymentLink(c *gin.Context) {
	link, err := h.paymentLinkService.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *APIHandler) PayPaymentLink(c *gin.Context) {
	pkg, err := h.paymentLinkService.Pay(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// Locations

func (h *APIHandler) ListLocations(c *gin.Context) {
	locs, err := h.locationService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locs})
}

func (h *APIHandler) GetLocation(c *gin.Context) {
	loc, err := h.locationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Customers

func (h *APIHandler) UpsertCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	customer, err := h.customerService.Upsert(c.Request.Context(), c.Param("phone"), req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *APIHandler) PurchaseMembership(c *gin.Context) {
	var req membershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	receipt, err := h.customerService.PurchaseMembership(c.Request.Context(), c.Param("phone"), req.LocationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
