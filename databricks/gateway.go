package databricks

import (
	"context"
	"time"
)

// DiscoveredColumn is one column as reported by the platform catalog.
type DiscoveredColumn struct {
	ColumnName   string `json:"column_name"`
	PhysicalName string `json:"physical_name"`
	DataType     string `json:"data_type"`
	PhysicalType string `json:"physical_type"`
	Nullable     bool   `json:"nullable"`
	Position     int    `json:"position"`
	Comment      string `json:"comment"`
}

// DiscoveredTable is one table as reported by the platform catalog.
type DiscoveredTable struct {
	TableName    string             `json:"table_name"`
	FullName     string             `json:"full_name"`
	Catalog      string             `json:"catalog"`
	Schema       string             `json:"schema"`
	TableType    string             `json:"table_type"`
	Comment      string             `json:"comment"`
	Owner        string             `json:"owner"`
	RowCount     int64              `json:"row_count"`
	SizeBytes    int64              `json:"size_bytes"`
	LastModified *time.Time         `json:"last_modified"`
	Columns      []DiscoveredColumn `json:"columns"`
}

// DiscoveryResult is everything one catalog sweep produced. Per-table
// listing failures land in Errors without failing the sweep.
type DiscoveryResult struct {
	Tables []DiscoveredTable `json:"tables"`
	Errors []string          `json:"errors"`
}

// SuggestionRequest carries the column context sent to the model endpoint.
type SuggestionRequest struct {
	TableName        string          `json:"table_name"`
	ColumnName       string          `json:"column_name"`
	PhysicalName     string          `json:"physical_name"`
	DataType         string          `json:"data_type"`
	Comments         string          `json:"comments"`
	SampleValues     []string        `json:"sample_values,omitempty"`
	SemanticContext  []SemanticField `json:"semantic_context,omitempty"`
	UserFeedback     string          `json:"user_feedback,omitempty"`
	NumVectorResults int             `json:"num_vector_results"`
	NumAIResults     int             `json:"num_ai_results"`
}

// SuggestionCandidate is one ranked model answer for a source column.
type SuggestionCandidate struct {
	TargetFieldName string  `json:"target_field_name"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	ModelName       string  `json:"model_name"`
	ModelVersion    string  `json:"model_version"`
}

// SemanticField is one vector search hit against the semantic field index.
type SemanticField struct {
	FieldName   string  `json:"field_name"`
	FieldPath   string  `json:"field_path"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// ConnectionStatus reports the outcome of a connectivity probe.
type ConnectionStatus struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LatencyMs int64  `json:"latency_ms"`
}

// Gateway is the single seam to the Databricks workspace. Implementations
// wrap every transport failure in utils.ErrorGateway so callers can map it
// to an upstream error response.
type Gateway interface {
	// TestConnection probes one integration with the given settings, or the
	// active settings when cfg is nil. Section is database, ai_model or
	// vector_search.
	TestConnection(ctx context.Context, section string, cfg map[string]any) (*ConnectionStatus, error)

	// DiscoverTables lists tables and their columns under the given
	// catalogs, optionally narrowed by a name search term.
	DiscoverTables(ctx context.Context, catalogs []string, search string) (*DiscoveryResult, error)

	// GenerateSuggestions asks the serving endpoint for ranked target field
	// candidates for one source column. Order of the returned slice is the
	// model's ranking.
	GenerateSuggestions(ctx context.Context, req *SuggestionRequest) ([]SuggestionCandidate, error)

	// SearchSemanticFields queries the vector search index for target
	// fields close to the query text.
	SearchSemanticFields(ctx context.Context, term string, limit int) ([]SemanticField, error)
}
