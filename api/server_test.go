package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"goquality/adapters/validators"
	"goquality/internal/engine"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng := engine.New(engine.Options{Factories: validators.Factories()})
	t.Cleanup(func() { eng.Close() })
	return NewServer(eng, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func inlineOrders() map[string]interface{} {
	return map[string]interface{}{
		"name":    "orders",
		"columns": []string{"order_id", "amount"},
		"rows": []map[string]interface{}{
			{"order_id": "o-1", "amount": 10.0},
			{"order_id": "o-2", "amount": nil},
		},
	}
}

func TestHealthz(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t)

	body := map[string]interface{}{
		"dataset": inlineOrders(),
		"rules": []map[string]interface{}{
			{
				"name": "ids present", "rule_type": "content", "dimension": "completeness",
				"parameters": map[string]interface{}{"subtype": "not_null", "column_name": "order_id"},
			},
			{
				"name": "amounts present", "rule_type": "content", "dimension": "completeness",
				"parameters": map[string]interface{}{"subtype": "not_null", "column_name": "amount"},
			},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/api/validate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Summary struct {
			TotalRules  int     `json:"total_rules"`
			PassedRules int     `json:"passed_rules"`
			FailedRules int     `json:"failed_rules"`
			SuccessRate float64 `json:"success_rate"`
		} `json:"summary"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary.TotalRules != 2 || resp.Summary.FailedRules != 1 {
		t.Errorf("unexpected summary: %+v", resp.Summary)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
}

func TestValidateRejectsMissingDataset(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/validate", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	body := map[string]interface{}{"dataset": inlineOrders(), "mode": "quantum"}
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/validate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRulesCRUD(t *testing.T) {
	s := newTestServer(t)

	create := map[string]interface{}{
		"name": "ids present", "rule_type": "content", "dimension": "completeness",
		"parameters": map[string]interface{}{"subtype": "not_null", "column_name": "order_id"},
	}
	rec := doJSON(t, s, http.MethodPost, "/api/rules", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		RuleID string `json:"rule_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created rule: %v", err)
	}
	if created.RuleID == "" {
		t.Fatal("created rule must carry an id")
	}

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/rules", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var listed struct {
			Rules []json.RawMessage `json:"rules"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		if len(listed.Rules) != 1 {
			t.Errorf("expected 1 rule, got %d", len(listed.Rules))
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/rules/"+created.RuleID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPatch, "/api/rules/"+created.RuleID, map[string]interface{}{
			"dimension": "validity",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("validate single rule", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/rules/%s/validate", created.RuleID), map[string]interface{}{
			"dataset": inlineOrders(),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var outcome struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
			t.Fatalf("decode outcome: %v", err)
		}
		if !outcome.Success {
			t.Error("expected the not_null check on order_id to pass")
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodDelete, "/api/rules/"+created.RuleID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		rec = doJSON(t, s, http.MethodGet, "/api/rules/"+created.RuleID, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", rec.Code)
		}
	})
}

func TestCreateRuleRejectsBadDefinition(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/rules", map[string]interface{}{
		"name": "nope", "rule_type": "teleportation", "dimension": "completeness",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
