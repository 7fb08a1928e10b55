package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Named serverless procedures
const (
	ProcValidateInvitation = "validate-invitation"
	ProcSendInvitation     = "send-invitation"
	ProcGenerateProposal   = "generate-proposal-pdf"
)

// Client invokes named serverless procedures over JSON POST requests.
// A transport or 5xx failure is an error; a well-formed negative payload
// (e.g. valid=false) is a normal result and must be treated as final by
// callers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Error is a structured error returned by a procedure
type Error struct {
	Procedure string `json:"procedure"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s failed: %d - %s", e.Procedure, e.Status, e.Message)
}

// NewClient creates a serverless RPC client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Call invokes the named procedure with the given payload and decodes the
// JSON response into result (which may be nil to discard it).
func (c *Client) Call(ctx context.Context, procedure string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, procedure)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", procedure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &Error{
			Procedure: procedure,
			Status:    resp.StatusCode,
			Message:   string(respBody),
		}
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", procedure, err)
	}

	return nil
}

// ValidateInvitationResult is the response shape of the validate-invitation
// procedure.
type ValidateInvitationResult struct {
	Valid       bool   `json:"valid"`
	ProposalID  string `json:"proposal_id,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ValidateInvitation invokes the fallback token validation procedure
func (c *Client) ValidateInvitation(ctx context.Context, token, userEmail string) (*ValidateInvitationResult, error) {
	payload := map[string]string{"token": token}
	if userEmail != "" {
		payload["user_email"] = userEmail
	}

	var result ValidateInvitationResult
	if err := c.Call(ctx, ProcValidateInvitation, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendInvitation asks the serverless mailer to deliver a proposal invitation
func (c *Client) SendInvitation(ctx context.Context, proposalID, clientEmail, token string) error {
	payload := map[string]string{
		"proposal_id":  proposalID,
		"client_email": clientEmail,
		"token":        token,
	}
	return c.Call(ctx, ProcSendInvitation, payload, nil)
}

// GenerateProposalPDF asks the serverless renderer to produce a proposal PDF
// and returns its URL.
func (c *Client) GenerateProposalPDF(ctx context.Context, proposalID string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	if err := c.Call(ctx, ProcGenerateProposal, map[string]string{"proposal_id": proposalID}, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}
