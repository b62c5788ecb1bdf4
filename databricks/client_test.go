package databricks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func testClient(t *testing.T, srv *httptest.Server, overrides map[string]string) *Client {
	t.Helper()
	settings := func(ctx context.Context, section, key string) (string, error) {
		if v, ok := overrides[section+"."+key]; ok {
			return v, nil
		}
		return "", nil
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := NewClient(logger, settings)
	c.host = srv.URL
	return c
}

func TestGenerateSuggestions_ParsesModelResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/serving-endpoints/test-endpoint/invocations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req servingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		// models wrap the JSON block in prose
		content := "Here are my mappings:\n" +
			`{"results": [` +
			`{"target_field": "member_id", "confidence": 0.93, "reasoning": "name match"},` +
			`{"target_field": "person_id", "confidence": 1.7, "reasoning": "broad match"},` +
			`{"target_field": "subscriber_id", "confidence": -0.2, "reasoning": "weak"}` +
			`]}` + "\nLet me know if you need more."
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv, map[string]string{
		"ai_model.foundation_model_endpoint": "test-endpoint",
	})

	got, err := c.GenerateSuggestions(context.Background(), &SuggestionRequest{
		TableName:    "members",
		ColumnName:   "member_id",
		NumAIResults: 3,
	})
	if err != nil {
		t.Fatalf("GenerateSuggestions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].TargetFieldName != "member_id" || got[0].Confidence != 0.93 {
		t.Fatalf("candidate 0 wrong: %+v", got[0])
	}
	// out-of-range confidences are clamped to [0, 1]
	if got[1].Confidence != 1 {
		t.Fatalf("confidence 1.7 not clamped: %v", got[1].Confidence)
	}
	if got[2].Confidence != 0 {
		t.Fatalf("confidence -0.2 not clamped: %v", got[2].Confidence)
	}
	if got[0].ModelName != "test-endpoint" {
		t.Fatalf("model name not stamped: %q", got[0].ModelName)
	}
}

func TestGenerateSuggestions_LimitsToRequestedCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"results": [` +
			`{"target_field": "a", "confidence": 0.9, "reasoning": ""},` +
			`{"target_field": "b", "confidence": 0.8, "reasoning": ""},` +
			`{"target_field": "c", "confidence": 0.7, "reasoning": ""}` +
			`]}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv, map[string]string{
		"ai_model.foundation_model_endpoint": "test-endpoint",
	})
	got, err := c.GenerateSuggestions(context.Background(), &SuggestionRequest{NumAIResults: 2})
	if err != nil {
		t.Fatalf("GenerateSuggestions: %v", err)
	}
	if len(got) != 2 || got[0].TargetFieldName != "a" || got[1].TargetFieldName != "b" {
		t.Fatalf("expected first 2 results in order, got %+v", got)
	}
}

func TestGenerateSuggestions_NoJSONInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "sorry, I cannot help with that"}},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv, map[string]string{
		"ai_model.foundation_model_endpoint": "test-endpoint",
	})
	if _, err := c.GenerateSuggestions(context.Background(), &SuggestionRequest{NumAIResults: 3}); err == nil {
		t.Fatalf("prose-only response accepted")
	}
}

func TestSearchSemanticFields_ParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/vector-search/indexes/test-index/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var q vectorQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("decode query: %v", err)
		}
		if q.NumResults != 2 {
			t.Errorf("num_results = %d", q.NumResults)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"data_array": [][]any{
					{"member_id", "members.member_id", "primary identifier", 0.91},
					{"dob", "members.dob", "birth date", 0.62},
					{"short row"},
				},
			},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv, map[string]string{
		"vector_search.index_name": "test-index",
	})
	fields, err := c.SearchSemanticFields(context.Background(), "member identifier", 2)
	if err != nil {
		t.Fatalf("SearchSemanticFields: %v", err)
	}
	// short rows are dropped
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].FieldName != "member_id" || fields[0].Score != 0.91 {
		t.Fatalf("field 0 wrong: %+v", fields[0])
	}
}

func TestTestConnection_ReportsFailureAsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code": "PERMISSION_DENIED"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(t, srv, map[string]string{
		"ai_model.foundation_model_endpoint": "test-endpoint",
	})
	status, err := c.TestConnection(context.Background(), "ai_model", nil)
	if err != nil {
		t.Fatalf("probe failure must not be an error: %v", err)
	}
	if status.Success {
		t.Fatalf("403 probe reported success")
	}
	if status.Message == "" {
		t.Fatalf("failed probe should carry a message")
	}
}

func TestTestConnection_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.1/unity-catalog/catalogs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"catalogs": []map[string]any{{"name": "main"}}})
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	status, err := c.TestConnection(context.Background(), "database", nil)
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if !status.Success {
		t.Fatalf("healthy probe reported failure: %s", status.Message)
	}
	if status.LatencyMs < 0 {
		t.Fatalf("negative latency")
	}
}

func TestDiscoverTables_FiltersBySearchTerm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/2.1/unity-catalog/schemas":
			json.NewEncoder(w).Encode(map[string]any{
				"schemas": []map[string]any{
					{"name": "claims"},
					{"name": "information_schema"},
				},
			})
		case "/api/2.1/unity-catalog/tables":
			if r.URL.Query().Get("schema_name") == "information_schema" {
				t.Errorf("information_schema must be skipped")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"tables": []map[string]any{
					{
						"name": "claim_lines", "full_name": "main.claims.claim_lines",
						"catalog_name": "main", "schema_name": "claims", "table_type": "MANAGED",
						"columns": []map[string]any{
							{"name": "claim_id", "type_name": "BIGINT", "type_text": "bigint", "nullable": false, "position": 0},
						},
					},
					{
						"name": "providers", "full_name": "main.claims.providers",
						"catalog_name": "main", "schema_name": "claims", "table_type": "MANAGED",
					},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	result, err := c.DiscoverTables(context.Background(), []string{"main"}, "claim")
	if err != nil {
		t.Fatalf("DiscoverTables: %v", err)
	}
	if len(result.Tables) != 1 {
		t.Fatalf("expected 1 matching table, got %d", len(result.Tables))
	}
	table := result.Tables[0]
	if table.FullName != "main.claims.claim_lines" {
		t.Fatalf("wrong table matched: %s", table.FullName)
	}
	if len(table.Columns) != 1 || table.Columns[0].ColumnName != "claim_id" {
		t.Fatalf("columns not mapped: %+v", table.Columns)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
}
