package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateInvitation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/validate-invitation" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload["token"] != "tok123" {
			t.Errorf("token = %q, want tok123", payload["token"])
		}

		json.NewEncoder(w).Encode(ValidateInvitationResult{
			Valid:       true,
			ProposalID:  "p-1",
			ClientEmail: "client@example.com",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	result, err := client.ValidateInvitation(context.Background(), "tok123", "")
	if err != nil {
		t.Fatalf("ValidateInvitation: %v", err)
	}
	if !result.Valid || result.ProposalID != "p-1" || result.ClientEmail != "client@example.com" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestCallReturnsStructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	err := client.Call(context.Background(), ProcSendInvitation, map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if rpcErr.Status != http.StatusInternalServerError || rpcErr.Procedure != ProcSendInvitation {
		t.Errorf("unexpected error fields: %+v", rpcErr)
	}
}

func TestCallTransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "")
	if err := client.Call(context.Background(), ProcGenerateProposal, nil, nil); err == nil {
		t.Fatal("expected transport error")
	}
}
