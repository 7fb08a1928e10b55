package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carbon-broker/internal/auth"
	"carbon-broker/internal/models"
	"carbon-broker/internal/rpc"
	"carbon-broker/internal/services"
)

type ProposalHandler struct {
	proposalService   *services.ProposalService
	invitationService *services.InvitationService
	portfolioService  *services.PortfolioService
	rpcClient         *rpc.Client
}

func NewProposalHandler(proposalService *services.ProposalService, invitationService *services.InvitationService, portfolioService *services.PortfolioService, rpcClient *rpc.Client) *ProposalHandler {
	return &ProposalHandler{
		proposalService:   proposalService,
		invitationService: invitationService,
		portfolioService:  portfolioService,
		rpcClient:         rpcClient,
	}
}

// CreateProposal creates a draft proposal for the current agent
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	agentID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input services.ProposalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposalService.Create(agentID, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposal,
	})
}

// GetProposals lists proposals scoped to the caller's role
func (h *ProposalHandler) GetProposals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	role, _ := auth.GetRole(c)
	email, _ := auth.GetEmail(c)

	var (
		proposals []models.Proposal
		err       error
	)
	if role == models.RoleClient {
		proposals, err = h.proposalService.ListForClientEmail(email)
	} else {
		proposals, err = h.proposalService.ListForAgent(userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get proposals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposals,
		"count":   len(proposals),
	})
}

// GetProposal returns one proposal by public id
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	proposal, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposal,
	})
}

// GetRevenuePreview returns the per-year revenue tables for a proposal
func (h *ProposalHandler) GetRevenuePreview(c *gin.Context) {
	proposal, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	preview, err := h.proposalService.RevenuePreview(proposal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    preview,
	})
}

// SubmitProposal moves a draft to pending and emails the invitation link
func (h *ProposalHandler) SubmitProposal(c *gin.Context) {
	agentID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	proposal, err := h.proposalService.Submit(c.Param("id"), agentID)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "assigned agent") {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.invitationService.Issue(proposal); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Proposal submitted but invitation could not be issued"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposal,
	})
}

// DecideProposal approves or rejects a pending proposal
func (h *ProposalHandler) DecideProposal(c *gin.Context) {
	email, _ := auth.GetEmail(c)
	role, _ := auth.GetRole(c)

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposalService.Decide(c.Param("id"), email, role, req.Approve)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "only the client") {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposal,
	})
}

// SignProposal moves an approved proposal to signed
func (h *ProposalHandler) SignProposal(c *gin.Context) {
	email, _ := auth.GetEmail(c)
	role, _ := auth.GetRole(c)

	proposal, err := h.proposalService.MarkSigned(c.Param("id"), email, role)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "only the client") {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposal,
	})
}

// ArchiveProposal archives a proposal
func (h *ProposalHandler) ArchiveProposal(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	role, _ := auth.GetRole(c)

	proposal, err := h.proposalService.Archive(c.Param("id"), userID, role)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "only the assigned agent") {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    proposal,
	})
}

// GetProposalPDF asks the serverless renderer for a proposal PDF and returns
// its URL.
func (h *ProposalHandler) GetProposalPDF(c *gin.Context) {
	proposal, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	if h.rpcClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PDF generation is not configured"})
		return
	}

	url, err := h.rpcClient.GenerateProposalPDF(c.Request.Context(), proposal.PublicID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "PDF generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"url": url},
	})
}

// GetPortfolio returns the current agent's aggregate portfolio
func (h *ProposalHandler) GetPortfolio(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	portfolio, err := h.portfolioService.ForAgent(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate portfolio"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    portfolio,
	})
}

// loadAuthorized loads the proposal named in the route and checks the caller
// may read it: the assigned agent, the client it is addressed to, or an
// admin.
func (h *ProposalHandler) loadAuthorized(c *gin.Context) (*models.Proposal, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	role, _ := auth.GetRole(c)
	email, _ := auth.GetEmail(c)

	proposal, err := h.proposalService.GetByPublicID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proposal not found"})
		return nil, false
	}

	switch {
	case role == models.RoleAdmin:
	case proposal.AgentID == userID:
	case proposal.ClientProfile != nil && proposal.ClientProfile.Email == email:
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}

	return proposal, true
}
