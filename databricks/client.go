package databricks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gainwell-gia/s2t_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SettingsFunc resolves one effective configuration value. Injected so the
// client follows admin panel changes without a restart.
type SettingsFunc func(ctx context.Context, section, key string) (string, error)

// Client talks to the Databricks REST API: Unity Catalog listing, model
// serving invocation and vector search queries.
type Client struct {
	host     string
	token    string
	http     *http.Client
	logger   *logrus.Logger
	tracer   trace.Tracer
	settings SettingsFunc
}

func NewClient(logger *logrus.Logger, settings SettingsFunc) *Client {
	return &Client{
		host:     strings.TrimRight(os.Getenv("DATABRICKS_HOST"), "/"),
		token:    os.Getenv("DATABRICKS_TOKEN"),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		tracer:   otel.Tracer("databricks"),
		settings: settings,
	}
}

func (c *Client) setting(ctx context.Context, section, key string) string {
	if c.settings == nil {
		return ""
	}
	value, err := c.settings(ctx, section, key)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"section": section, "key": key,
		}).Warn("configuration lookup failed")
		return ""
	}
	return value
}

func (c *Client) hostFor(ctx context.Context) string {
	if host := c.setting(ctx, "database", "server_hostname"); host != "" {
		if !strings.HasPrefix(host, "http") {
			host = "https://" + host
		}
		return strings.TrimRight(host, "/")
	}
	return c.host
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return utils.GatewayError(err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.hostFor(ctx) + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return utils.GatewayError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.GatewayError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return utils.GatewayError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return utils.GatewayError(fmt.Errorf("%s %s returned %d: %s",
			method, path, resp.StatusCode, truncate(string(data), 300)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return utils.GatewayError(fmt.Errorf("bad response from %s: %w", path, err))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type catalogList struct {
	Catalogs []struct {
		Name string `json:"name"`
	} `json:"catalogs"`
}

type schemaList struct {
	Schemas []struct {
		Name string `json:"name"`
	} `json:"schemas"`
}

type tableList struct {
	Tables []struct {
		Name        string `json:"name"`
		FullName    string `json:"full_name"`
		CatalogName string `json:"catalog_name"`
		SchemaName  string `json:"schema_name"`
		TableType   string `json:"table_type"`
		Comment     string `json:"comment"`
		Owner       string `json:"owner"`
		UpdatedAt   int64  `json:"updated_at"`
		Columns     []struct {
			Name     string `json:"name"`
			TypeName string `json:"type_name"`
			TypeText string `json:"type_text"`
			Nullable bool   `json:"nullable"`
			Position int    `json:"position"`
			Comment  string `json:"comment"`
		} `json:"columns"`
	} `json:"tables"`
}

func (c *Client) TestConnection(ctx context.Context, section string, cfg map[string]any) (*ConnectionStatus, error) {
	ctx, span := c.tracer.Start(ctx, "databricks.TestConnection",
		trace.WithAttributes(attribute.String("section", section)))
	defer span.End()

	start := time.Now()
	var err error
	switch section {
	case "ai_model":
		endpoint := stringOverride(cfg, "foundation_model_endpoint")
		if endpoint == "" {
			endpoint = c.setting(ctx, "ai_model", "foundation_model_endpoint")
		}
		err = c.do(ctx, http.MethodGet, "/api/2.0/serving-endpoints/"+url.PathEscape(endpoint), nil, nil, nil)
	case "vector_search":
		index := stringOverride(cfg, "index_name")
		if index == "" {
			index = c.setting(ctx, "vector_search", "index_name")
		}
		err = c.do(ctx, http.MethodGet, "/api/2.0/vector-search/indexes/"+url.PathEscape(index), nil, nil, nil)
	default:
		query := url.Values{"max_results": {"1"}}
		err = c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/catalogs", query, nil, &catalogList{})
	}

	status := &ConnectionStatus{
		Success:   err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Message = err.Error()
		// probe failure is a result, not an error
		return status, nil
	}
	status.Message = "connection successful"
	return status, nil
}

func stringOverride(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}
	if value, ok := cfg[key].(string); ok {
		return value
	}
	return ""
}

func (c *Client) DiscoverTables(ctx context.Context, catalogs []string, search string) (*DiscoveryResult, error) {
	ctx, span := c.tracer.Start(ctx, "databricks.DiscoverTables",
		trace.WithAttributes(attribute.Int("catalogs", len(catalogs))))
	defer span.End()

	if len(catalogs) == 0 {
		var list catalogList
		if err := c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/catalogs", nil, nil, &list); err != nil {
			return nil, err
		}
		for _, catalog := range list.Catalogs {
			catalogs = append(catalogs, catalog.Name)
		}
	}

	result := &DiscoveryResult{Errors: []string{}}
	search = strings.ToLower(search)
	for _, catalog := range catalogs {
		var schemas schemaList
		query := url.Values{"catalog_name": {catalog}}
		if err := c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/schemas", query, nil, &schemas); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", catalog, err))
			continue
		}
		for _, schema := range schemas.Schemas {
			if schema.Name == "information_schema" {
				continue
			}
			tables, err := c.listTables(ctx, catalog, schema.Name)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s.%s: %v", catalog, schema.Name, err))
				continue
			}
			for _, table := range tables {
				if search != "" &&
					!strings.Contains(strings.ToLower(table.TableName), search) &&
					!strings.Contains(strings.ToLower(table.Comment), search) {
					continue
				}
				result.Tables = append(result.Tables, table)
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"tables": len(result.Tables),
		"errors": len(result.Errors),
	}).Info("catalog discovery finished")
	return result, nil
}

func (c *Client) listTables(ctx context.Context, catalog, schema string) ([]DiscoveredTable, error) {
	var list tableList
	query := url.Values{"catalog_name": {catalog}, "schema_name": {schema}}
	if err := c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/tables", query, nil, &list); err != nil {
		return nil, err
	}

	tables := make([]DiscoveredTable, 0, len(list.Tables))
	for _, t := range list.Tables {
		table := DiscoveredTable{
			TableName: t.Name,
			FullName:  t.FullName,
			Catalog:   t.CatalogName,
			Schema:    t.SchemaName,
			TableType: t.TableType,
			Comment:   t.Comment,
			Owner:     t.Owner,
		}
		if t.UpdatedAt > 0 {
			modified := time.UnixMilli(t.UpdatedAt)
			table.LastModified = &modified
		}
		for _, col := range t.Columns {
			table.Columns = append(table.Columns, DiscoveredColumn{
				ColumnName:   col.Name,
				PhysicalName: col.Name,
				DataType:     col.TypeName,
				PhysicalType: col.TypeText,
				Nullable:     col.Nullable,
				Position:     col.Position,
				Comment:      col.Comment,
			})
		}
		tables = append(tables, table)
	}
	return tables, nil
}

type servingRequest struct {
	Messages    []servingMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

type servingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type servingResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type suggestionPayload struct {
	Results []struct {
		TargetField string  `json:"target_field"`
		Confidence  float64 `json:"confidence"`
		Reasoning   string  `json:"reasoning"`
	} `json:"results"`
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

func (c *Client) GenerateSuggestions(ctx context.Context, req *SuggestionRequest) ([]SuggestionCandidate, error) {
	ctx, span := c.tracer.Start(ctx, "databricks.GenerateSuggestions",
		trace.WithAttributes(attribute.String("column", req.ColumnName)))
	defer span.End()

	endpoint := c.setting(ctx, "ai_model", "foundation_model_endpoint")
	if endpoint == "" {
		return nil, utils.GatewayError(fmt.Errorf("no model endpoint configured"))
	}

	prompt := c.buildPrompt(ctx, req)
	payload := servingRequest{
		Messages: []servingMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   2048,
		Temperature: 0.1,
	}
	var response servingResponse
	path := "/api/2.0/serving-endpoints/" + url.PathEscape(endpoint) + "/invocations"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, utils.GatewayError(fmt.Errorf("model returned no choices"))
	}

	raw := jsonBlockPattern.FindString(response.Choices[0].Message.Content)
	if raw == "" {
		return nil, utils.GatewayError(fmt.Errorf("no JSON found in model response"))
	}
	var parsed suggestionPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, utils.GatewayError(fmt.Errorf("bad model response: %w", err))
	}

	limit := req.NumAIResults
	if limit <= 0 || limit > len(parsed.Results) {
		limit = len(parsed.Results)
	}
	candidates := make([]SuggestionCandidate, 0, limit)
	for _, r := range parsed.Results[:limit] {
		confidence := r.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		candidates = append(candidates, SuggestionCandidate{
			TargetFieldName: r.TargetField,
			Confidence:      confidence,
			Reasoning:       r.Reasoning,
			ModelName:       endpoint,
			ModelVersion:    endpoint,
		})
	}
	return candidates, nil
}

func (c *Client) buildPrompt(ctx context.Context, req *SuggestionRequest) string {
	template := c.setting(ctx, "ai_model", "default_prompt")

	var retrieved strings.Builder
	for _, field := range req.SemanticContext {
		fmt.Fprintf(&retrieved, "- %s (%s): %s [score %.3f]\n",
			field.FieldName, field.FieldPath, field.Description, field.Score)
	}
	queryText := fmt.Sprintf("table=%s column=%s physical=%s type=%s comments=%s",
		req.TableName, req.ColumnName, req.PhysicalName, req.DataType, req.Comments)

	feedback := ""
	if req.UserFeedback != "" {
		feedback = "\nUser guidance: " + req.UserFeedback
	}

	if template == "" {
		return fmt.Sprintf(
			"Map the source field to one of the candidate target fields.%s\n\nCandidates:\n%s\nSource field: %s\n\nReturn JSON {\"results\": [{\"target_field\", \"confidence\", \"reasoning\"}]} with your top %d guesses in order.",
			feedback, retrieved.String(), queryText, req.NumAIResults)
	}

	replacer := strings.NewReplacer(
		"{feedback_section}", feedback,
		"{previous_section}", "",
		"{retrieved_context_structure}", `{"target_table_field": ..., "previous_mappings": [...]}`,
		"{retrieved_context}", retrieved.String(),
		"{query_text}", queryText,
		"{no_mapping_guidance}", "",
		"{num_results}", fmt.Sprint(req.NumAIResults),
		"{results_structure}", `{"results": [{"target_field": ..., "confidence": ..., "reasoning": ...}]}`,
	)
	return replacer.Replace(template)
}

type vectorQuery struct {
	QueryText  string   `json:"query_text"`
	Columns    []string `json:"columns"`
	NumResults int      `json:"num_results"`
}

type vectorResponse struct {
	Result struct {
		DataArray [][]any `json:"data_array"`
	} `json:"result"`
}

func (c *Client) SearchSemanticFields(ctx context.Context, term string, limit int) ([]SemanticField, error) {
	ctx, span := c.tracer.Start(ctx, "databricks.SearchSemanticFields",
		trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	index := c.setting(ctx, "vector_search", "index_name")
	if index == "" {
		return nil, utils.GatewayError(fmt.Errorf("no vector search index configured"))
	}
	if limit <= 0 {
		limit = 5
	}

	payload := vectorQuery{
		QueryText:  term,
		Columns:    []string{"field_name", "field_path", "description"},
		NumResults: limit,
	}
	var response vectorResponse
	path := "/api/2.0/vector-search/indexes/" + url.PathEscape(index) + "/query"
	if err := c.do(ctx, http.MethodPost, path, nil, payload, &response); err != nil {
		return nil, err
	}

	// rows carry the requested columns plus the similarity score last
	fields := make([]SemanticField, 0, len(response.Result.DataArray))
	for _, row := range response.Result.DataArray {
		if len(row) < 4 {
			continue
		}
		field := SemanticField{
			FieldName:   stringAt(row, 0),
			FieldPath:   stringAt(row, 1),
			Description: stringAt(row, 2),
		}
		if score, ok := row[len(row)-1].(float64); ok {
			field.Score = score
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func stringAt(row []any, i int) string {
	if value, ok := row[i].(string); ok {
		return value
	}
	return ""
}
