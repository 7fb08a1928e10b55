package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carbon-broker/internal/auth"
	"carbon-broker/internal/services"
)

type AdminHandler struct {
	adminService *services.AdminService
	priceService *services.CarbonPriceService
}

func NewAdminHandler(adminService *services.AdminService, priceService *services.CarbonPriceService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		priceService: priceService,
	}
}

// GetUsers lists all users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
		"count":   len(users),
	})
}

// SetUserRole changes a user's role
func (h *AdminHandler) SetUserRole(c *gin.Context) {
	adminID, _ := auth.GetUserID(c)

	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.adminService.SetRole(adminID, req.UserID, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetCarbonPrices returns the year -> price table
func (h *AdminHandler) GetCarbonPrices(c *gin.Context) {
	table, err := h.priceService.PriceTable()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load price table"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    table,
	})
}

// UpsertCarbonPrice creates or updates the price for one year
func (h *AdminHandler) UpsertCarbonPrice(c *gin.Context) {
	var req struct {
		Year     int    `json:"year" binding:"required"`
		Price    string `json:"price" binding:"required"`
		Currency string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
		return
	}

	record, err := h.priceService.UpsertPrice(req.Year, price, req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    record,
	})
}

// RecalculatePercentages re-snapshots every non-terminal proposal
func (h *AdminHandler) RecalculatePercentages(c *gin.Context) {
	adminID, _ := auth.GetUserID(c)

	report, err := h.adminService.RecalculateAllPercentages(adminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// GetAdminLogs returns recent admin actions
func (h *AdminHandler) GetAdminLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.adminService.GetLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
		"count":   len(logs),
	})
}
