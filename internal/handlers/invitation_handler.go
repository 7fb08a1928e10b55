package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carbon-broker/internal/services"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// ValidateInvitation resolves an invitation token for an unauthenticated
// visitor opening a proposal link. An invalid or expired token is a 200 with
// valid=false; only a failure of both validation paths is an error.
func (h *InvitationHandler) ValidateInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token query parameter required"})
		return
	}

	// Optional hint for the fallback path; visitors are usually anonymous.
	userEmail := c.Query("email")

	result, err := h.invitationService.Validate(c.Request.Context(), token, userEmail)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Invitation validation is temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
