package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/databricks"
	"github.com/gainwell-gia/s2t_backend/models"
	"github.com/gainwell-gia/s2t_backend/utils"
)

// fakeGateway serves canned responses so the suggestion lifecycle can run
// without a Databricks workspace.
type fakeGateway struct {
	candidates []databricks.SuggestionCandidate
	semantic   []databricks.SemanticField
}

func (g *fakeGateway) TestConnection(ctx context.Context, section string, cfg map[string]any) (*databricks.ConnectionStatus, error) {
	return &databricks.ConnectionStatus{Success: true, Message: "ok"}, nil
}

func (g *fakeGateway) DiscoverTables(ctx context.Context, catalogs []string, search string) (*databricks.DiscoveryResult, error) {
	return &databricks.DiscoveryResult{}, nil
}

func (g *fakeGateway) GenerateSuggestions(ctx context.Context, req *databricks.SuggestionRequest) ([]databricks.SuggestionCandidate, error) {
	return g.candidates, nil
}

func (g *fakeGateway) SearchSemanticFields(ctx context.Context, term string, limit int) ([]databricks.SemanticField, error) {
	return g.semantic, nil
}

func TestMappingLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "s2t_test")
	t.Setenv("MAPPING_SUPERSEDE_POLICY", "")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	table, err := models.CreateSourceTable(ctx, &models.NewSourceTable{
		CatalogName: "main",
		SchemaName:  "claims",
		TableName:   "claim_lines",
	})
	if err != nil {
		t.Fatalf("CreateSourceTable: %v", err)
	}
	column, err := models.CreateSourceColumn(ctx, &models.NewSourceColumn{
		TableId:    table.ID,
		ColumnName: "member_id",
		DataType:   "bigint",
	})
	if err != nil {
		t.Fatalf("CreateSourceColumn: %v", err)
	}
	if column.Status != models.ColumnStatusUnmapped {
		t.Fatalf("new column status = %s, want unmapped", column.Status)
	}

	schema, err := models.CreateTargetSchema(ctx, &models.NewTargetSchema{
		SchemaName:  "semantic",
		DisplayName: "Semantic Model",
	})
	if err != nil {
		t.Fatalf("CreateTargetSchema: %v", err)
	}
	field, err := models.CreateTargetField(ctx, &models.NewTargetField{
		SchemaId:  schema.ID,
		FieldName: "member_identifier",
		DataType:  "bigint",
	})
	if err != nil {
		t.Fatalf("CreateTargetField: %v", err)
	}
	altField, err := models.CreateTargetField(ctx, &models.NewTargetField{
		SchemaId:  schema.ID,
		FieldName: "person_identifier",
		DataType:  "bigint",
	})
	if err != nil {
		t.Fatalf("CreateTargetField: %v", err)
	}

	// suggested: generating suggestions moves an unmapped column forward
	gw := &fakeGateway{
		candidates: []databricks.SuggestionCandidate{
			{TargetFieldName: "member_identifier", Confidence: 0.92, Reasoning: "name match", ModelName: "fake", ModelVersion: "fake"},
			{TargetFieldName: "no_such_field", Confidence: 0.40, Reasoning: "weak", ModelName: "fake", ModelVersion: "fake"},
		},
	}
	suggestions, err := models.GenerateSuggestions(ctx, gw, column.ID, 5, 3, "")
	if err != nil {
		t.Fatalf("GenerateSuggestions: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].Rank != 1 || suggestions[1].Rank != 2 {
		t.Fatalf("ranks not sequential: %d, %d", suggestions[0].Rank, suggestions[1].Rank)
	}
	if suggestions[0].TargetFieldId == nil || *suggestions[0].TargetFieldId != field.ID {
		t.Fatalf("known field name not resolved to target field id")
	}
	if suggestions[1].TargetFieldId != nil {
		t.Fatalf("unknown field name should keep nil target field id")
	}
	column = mustGetColumn(t, ctx, column.ID)
	if column.Status != models.ColumnStatusSuggested {
		t.Fatalf("column status after suggest = %s, want suggested", column.Status)
	}

	// rejecting a suggestion without an active mapping falls back to unmapped
	if err := models.RejectSuggestion(ctx, suggestions[1].ID, "wrong domain"); err != nil {
		t.Fatalf("RejectSuggestion: %v", err)
	}
	column = mustGetColumn(t, ctx, column.ID)
	if column.Status != models.ColumnStatusSuggested {
		t.Fatalf("one suggestion left, column should stay suggested, got %s", column.Status)
	}

	// accepting promotes to a pending mapping and clears the remaining suggestions
	mapping, err := models.AcceptSuggestion(ctx, suggestions[0].ID)
	if err != nil {
		t.Fatalf("AcceptSuggestion: %v", err)
	}
	if mapping.MappingType != models.MappingTypeAISuggestion || mapping.Status != models.MappingStatusPending {
		t.Fatalf("accepted mapping wrong: type=%s status=%s", mapping.MappingType, mapping.Status)
	}
	column = mustGetColumn(t, ctx, column.ID)
	if column.Status != models.ColumnStatusMapped {
		t.Fatalf("column status after accept = %s, want mapped", column.Status)
	}

	// accept is not idempotent: the suggestion was consumed
	if _, err := models.AcceptSuggestion(ctx, suggestions[0].ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("second accept should be not found, got %v", err)
	}

	// validate is idempotent
	validated, err := models.ValidateFieldMapping(ctx, mapping.ID, "looks right")
	if err != nil {
		t.Fatalf("ValidateFieldMapping: %v", err)
	}
	if validated.Status != models.MappingStatusValidated || validated.ValidatedAt == nil {
		t.Fatalf("mapping not validated: %+v", validated)
	}
	again, err := models.ValidateFieldMapping(ctx, mapping.ID, "second pass")
	if err != nil {
		t.Fatalf("ValidateFieldMapping again: %v", err)
	}
	if !again.ValidatedAt.Equal(*validated.ValidatedAt) {
		t.Fatalf("revalidation changed the validation timestamp")
	}

	// replace policy: a new manual mapping supersedes the active one
	replacement, err := models.CreateFieldMapping(ctx, &models.NewFieldMapping{
		SourceColumnId: column.ID,
		TargetFieldId:  altField.ID,
	})
	if err != nil {
		t.Fatalf("CreateFieldMapping (replace): %v", err)
	}
	if _, err := models.GetFieldMapping(ctx, mapping.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("replaced mapping should be gone, got %v", err)
	}

	// reject-new policy: a second active mapping is refused
	t.Setenv("MAPPING_SUPERSEDE_POLICY", "reject-new")
	if _, err := models.CreateFieldMapping(ctx, &models.NewFieldMapping{
		SourceColumnId: column.ID,
		TargetFieldId:  field.ID,
	}); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("reject-new should conflict, got %v", err)
	}

	// archive policy: the old mapping survives as archived
	t.Setenv("MAPPING_SUPERSEDE_POLICY", "archive")
	archivedSuccessor, err := models.CreateFieldMapping(ctx, &models.NewFieldMapping{
		SourceColumnId: column.ID,
		TargetFieldId:  field.ID,
	})
	if err != nil {
		t.Fatalf("CreateFieldMapping (archive): %v", err)
	}
	old, err := models.GetFieldMapping(ctx, replacement.ID)
	if err != nil {
		t.Fatalf("archived mapping should still exist: %v", err)
	}
	if old.Status != models.MappingStatusArchived {
		t.Fatalf("superseded mapping status = %s, want archived", old.Status)
	}

	// unmap: removing the only active mapping returns the column to unmapped
	if err := models.UnmapField(ctx, archivedSuccessor.ID); err != nil {
		t.Fatalf("UnmapField: %v", err)
	}
	column = mustGetColumn(t, ctx, column.ID)
	if column.Status != models.ColumnStatusUnmapped {
		t.Fatalf("column status after unmap = %s, want unmapped", column.Status)
	}
}

func mustGetColumn(t *testing.T, ctx context.Context, id int) *models.SourceColumn {
	t.Helper()
	column, err := models.GetSourceColumn(ctx, id)
	if err != nil {
		t.Fatalf("GetSourceColumn(%d): %v", id, err)
	}
	return column
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("s2t-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("s2t-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=s2t_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
