package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/databricks"
	"github.com/gainwell-gia/s2t_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Configuration is one setting row. The full set of valid (section, key)
// pairs and their value types is fixed by the baseline below; rows only
// override baseline values.
type Configuration struct {
	ID          int           `gorm:"primary_key" json:"id"`
	Section     ConfigSection `gorm:"type:enum('database','ai_model','vector_search','ui','support','security');uniqueIndex:idx_section_key;index;not null" json:"section"`
	Key         string        `gorm:"size:100;uniqueIndex:idx_section_key;not null" json:"key"`
	Value       JSONValue     `gorm:"type:json" json:"value"`
	Description string        `gorm:"type:text" json:"description"`
	IsActive    *bool         `gorm:"not null;default:true" json:"is_active"`
	UpdatedBy   int           `json:"updated_by"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Configuration) TableName() string { return "configuration_settings" }

func (c Configuration) SearchText() []string {
	return []string{string(c.Section), c.Key, c.Description}
}

// ConfigurationHistory is one audit row. Section and key are denormalized so
// the audit trail survives row deletion on reset.
type ConfigurationHistory struct {
	ID              int           `gorm:"primary_key" json:"id"`
	ConfigurationId int           `gorm:"index" json:"configuration_id"`
	Section         ConfigSection `gorm:"type:enum('database','ai_model','vector_search','ui','support','security');index;not null" json:"section"`
	Key             string        `gorm:"size:100;not null" json:"key"`
	OldValue        JSONValue     `gorm:"type:json" json:"old_value"`
	NewValue        JSONValue     `gorm:"type:json" json:"new_value"`
	ChangedBy       int           `json:"changed_by"`
	Reason          string        `gorm:"type:text" json:"reason"`
	ChangedAt       time.Time     `gorm:"autoCreateTime;index" json:"changed_at"`
}

func (ConfigurationHistory) TableName() string { return "configuration_history" }

type valueKind string

const (
	kindString  valueKind = "string"
	kindText    valueKind = "text"
	kindNumber  valueKind = "number"
	kindBoolean valueKind = "boolean"
)

const defaultSuggestionPrompt = `You are an ETL engineer and your job is to take in information on an incoming field from a source database and map it to an existing target table in your database.{feedback_section}{previous_section}

The incoming field can be described by its table name, column name, natural language description, whether or not it is nullable, and its datatype. The same information from semantically similar fields in your target database table field are provided in this prompt, and it is likely that one of these provided columns is the correct match for mapping. As an additional hint, each target field may contain source fields that have been previously mapped to that target field. The semantically similar target fields (and their corresponding previous source field mappings) can be found in this structure:

{retrieved_context_structure}

If no previous data has been mapped to the target_table_field, you will see an [NaN]. Here is the information about the target table and its columns:

{retrieved_context}

Here is the source field you want to map to one of those target columns: {query_text}{no_mapping_guidance}

Please return your top {num_results} guesses for the correct target column mapping, in order. IMPORTANT: Your suggestions must comply with any constraints specified above. Do not include any mappings that violate the user requirements or include excluded columns. Format your response in a json format with a "results" key containing array of the results (i.e.
` + "```{results_structure}```" + `
). The "reasoning" field should contain a brief description of why you think this mapping is correct and confirm it meets the specified constraints. You can include references to previously mapped columns or semantic or datatype similarities.`

type configKeySpec struct {
	kind     valueKind
	baseline any
}

// configBaseline fixes the key universe per section. Unknown keys are
// rejected everywhere, so typos never become shadow settings.
var configBaseline = map[ConfigSection]map[string]configKeySpec{
	ConfigSectionDatabase: {
		"warehouse_name":  {kindString, "gia-oztest-dev-data-warehouse"},
		"mapping_table":   {kindString, "oztest_dev.source_to_target.mappings"},
		"semantic_table":  {kindString, "oztest_dev.source_to_target.silver_semantic_full"},
		"server_hostname": {kindString, "Acuity-oz-test-ue1.cloud.databricks.com"},
		"http_path":       {kindString, "/sql/1.0/warehouses/173ea239ed13be7d"},
	},
	ConfigSectionAIModel: {
		"previous_mappings_table_name": {kindString, "oztest_dev.source_to_target.train_with_comments"},
		"foundation_model_endpoint":    {kindString, "databricks-meta-llama-3-3-70b-instruct"},
		"default_prompt":               {kindText, defaultSuggestionPrompt},
	},
	ConfigSectionUI: {
		"app_title":        {kindString, "Source-to-Target Mapping Platform"},
		"theme_color":      {kindString, "#4a5568"},
		"sidebar_expanded": {kindBoolean, true},
	},
	ConfigSectionSupport: {
		"support_url": {kindString, "https://mygainwell.sharepoint.com"},
	},
	ConfigSectionVectorSearch: {
		"index_name":    {kindString, "oztest_dev.source_to_target.silver_semantic_full_vs"},
		"endpoint_name": {kindString, "s2t_vsendpoint"},
	},
	ConfigSectionSecurity: {
		"admin_group_name":     {kindString, "gia-oztest-dev-ue1-data-engineers"},
		"enable_password_auth": {kindBoolean, true},
		"admin_password_hash":  {kindString, ""},
	},
}

func validateSetting(section ConfigSection, key string, value any) error {
	if !section.Valid() {
		return utils.ValidationErrorf("unknown configuration section %q", section)
	}
	spec, ok := configBaseline[section][key]
	if !ok {
		return utils.ValidationErrorf("unknown configuration key %s.%s", section, key)
	}
	switch spec.kind {
	case kindString, kindText:
		if _, ok := value.(string); !ok {
			return utils.ValidationErrorf("%s.%s must be a string", section, key)
		}
	case kindBoolean:
		if _, ok := value.(bool); !ok {
			return utils.ValidationErrorf("%s.%s must be a boolean", section, key)
		}
	case kindNumber:
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return utils.ValidationErrorf("%s.%s must be a number", section, key)
		}
	}
	return nil
}

// GetConfigSection returns one section with stored rows overlaid on the
// baseline, so every known key is always present.
func GetConfigSection(ctx context.Context, section ConfigSection) (map[string]any, error) {
	if !section.Valid() {
		return nil, utils.ValidationErrorf("unknown configuration section %q", section)
	}
	result := map[string]any{}
	for key, spec := range configBaseline[section] {
		result[key] = spec.baseline
	}

	db := config.GetDB()
	var rows []Configuration
	err := db.WithContext(ctx).
		Where("section = ? AND is_active = ?", section, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, known := configBaseline[section][row.Key]; known {
			result[row.Key] = row.Value.V
		}
	}
	return result, nil
}

// FullConfiguration returns every section overlaid on the baseline.
func FullConfiguration(ctx context.Context) (map[string]map[string]any, error) {
	result := map[string]map[string]any{}
	for _, section := range AllConfigSections() {
		values, err := GetConfigSection(ctx, section)
		if err != nil {
			return nil, err
		}
		result[string(section)] = values
	}
	return result, nil
}

type ConfigurationFilter struct {
	Section  string
	Search   string
	Page     int
	PageSize int
}

// ListConfigurationSettings lists stored override rows, not the baseline.
func ListConfigurationSettings(ctx context.Context, filter *ConfigurationFilter) ([]Configuration, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Configuration{}).Where("is_active = ?", true)
	if filter.Section != "" {
		if !ConfigSection(filter.Section).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown configuration section %q", filter.Section)
		}
		dbCtx = dbCtx.Where("section = ?", filter.Section)
	}

	var settings []Configuration
	if err := dbCtx.Order("section, `key`").Limit(config.SearchLimit).Find(&settings).Error; err != nil {
		return nil, 0, err
	}
	matched := utils.SearchFilter(settings, filter.Search)
	page := utils.Paginate(matched, filter.Page, filter.PageSize)
	return page, len(matched), nil
}

func upsertSetting(tx *gorm.DB, userId int, section ConfigSection, key string, value any, reason string) error {
	var existing Configuration
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("section = ? AND `key` = ?", section, key).
		First(&existing).Error

	history := ConfigurationHistory{
		Section:   section,
		Key:       key,
		NewValue:  JSONValue{V: value},
		ChangedBy: userId,
		Reason:    reason,
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := Configuration{
			Section:   section,
			Key:       key,
			Value:     JSONValue{V: value},
			IsActive:  utils.NewTrue(),
			UpdatedBy: userId,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		history.ConfigurationId = row.ID
		history.OldValue = JSONValue{V: configBaseline[section][key].baseline}
		return tx.Create(&history).Error
	}
	if err != nil {
		return err
	}

	history.ConfigurationId = existing.ID
	history.OldValue = existing.Value
	existing.Value = JSONValue{V: value}
	existing.IsActive = utils.NewTrue()
	existing.UpdatedBy = userId
	if err := tx.Save(&existing).Error; err != nil {
		return err
	}
	return tx.Create(&history).Error
}

// UpdateSetting writes one value with an audit row. Unknown keys and type
// mismatches are rejected before anything is written.
func UpdateSetting(ctx context.Context, section ConfigSection, key string, value any, reason string) error {
	if err := validateSetting(section, key, value); err != nil {
		return err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertSetting(tx, userId, section, key, value, reason)
	})
}

type settingChange struct {
	section ConfigSection
	key     string
	value   any
}

func validateConfigData(data map[string]map[string]any) ([]settingChange, error) {
	sections := make([]string, 0, len(data))
	for section := range data {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	var changes []settingChange
	for _, sectionName := range sections {
		section := ConfigSection(sectionName)
		keys := make([]string, 0, len(data[sectionName]))
		for key := range data[sectionName] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := data[sectionName][key]
			if err := validateSetting(section, key, value); err != nil {
				return nil, err
			}
			changes = append(changes, settingChange{section, key, value})
		}
	}
	return changes, nil
}

// BulkUpdateConfiguration applies many settings atomically. One bad entry
// fails the whole batch before any write.
func BulkUpdateConfiguration(ctx context.Context, data map[string]map[string]any, reason string) (int, error) {
	changes, err := validateConfigData(data)
	if err != nil {
		return 0, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, change := range changes {
			if err := upsertSetting(tx, userId, change.section, change.key, change.value, reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(changes), nil
}

// ExportConfiguration returns the effective configuration for the named
// sections, or all of them when none are given.
func ExportConfiguration(ctx context.Context, sections []string) (map[string]map[string]any, error) {
	if len(sections) == 0 {
		return FullConfiguration(ctx)
	}
	result := map[string]map[string]any{}
	for _, sectionName := range sections {
		section := ConfigSection(sectionName)
		values, err := GetConfigSection(ctx, section)
		if err != nil {
			return nil, err
		}
		result[sectionName] = values
	}
	return result, nil
}

// ImportConfiguration loads an exported document. Everything is validated
// before any write. With MergeStrategyReplace each imported section's stored
// rows are cleared first so the section becomes exactly the document plus
// baseline.
func ImportConfiguration(ctx context.Context, data map[string]map[string]any, strategy MergeStrategy, reason string) (int, error) {
	if strategy == "" {
		strategy = MergeStrategyMerge
	}
	if !strategy.Valid() {
		return 0, utils.ValidationErrorf("unknown merge strategy %q", strategy)
	}
	changes, err := validateConfigData(data)
	if err != nil {
		return 0, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if strategy == MergeStrategyReplace {
			for sectionName := range data {
				if err := clearSection(tx, userId, ConfigSection(sectionName), reason); err != nil {
					return err
				}
			}
		}
		for _, change := range changes {
			if err := upsertSetting(tx, userId, change.section, change.key, change.value, reason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(changes), nil
}

func clearSection(tx *gorm.DB, userId int, section ConfigSection, reason string) error {
	var rows []Configuration
	if err := tx.Where("section = ?", section).Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		history := ConfigurationHistory{
			ConfigurationId: row.ID,
			Section:         row.Section,
			Key:             row.Key,
			OldValue:        row.Value,
			NewValue:        JSONValue{V: configBaseline[row.Section][row.Key].baseline},
			ChangedBy:       userId,
			Reason:          reason,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
	}
	return tx.Where("section = ?", section).Delete(&Configuration{}).Error
}

// ResetConfigurationDefaults drops every override so the effective
// configuration is the baseline again. Each removal is audited.
func ResetConfigurationDefaults(ctx context.Context, reason string) error {
	userId, _ := utils.GetUserIdFromContext(ctx)
	if reason == "" {
		reason = "reset to defaults"
	}
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, section := range AllConfigSections() {
			if err := clearSection(tx, userId, section, reason); err != nil {
				return err
			}
		}
		return nil
	})
}

// TestConfiguration probes one integration through the gateway with an
// optional settings override. Nothing is persisted.
func TestConfiguration(ctx context.Context, gw databricks.Gateway, testType string, override map[string]any) (*databricks.ConnectionStatus, error) {
	switch ConfigSection(testType) {
	case ConfigSectionDatabase, ConfigSectionAIModel, ConfigSectionVectorSearch:
	default:
		return nil, utils.ValidationErrorf("unknown test type %q", testType)
	}
	for key, value := range override {
		if err := validateSetting(ConfigSection(testType), key, value); err != nil {
			return nil, err
		}
	}
	return gw.TestConnection(ctx, testType, override)
}

type ConfigurationHistoryFilter struct {
	Section  string
	Key      string
	Page     int
	PageSize int
}

func ListConfigurationHistory(ctx context.Context, filter *ConfigurationHistoryFilter) ([]ConfigurationHistory, int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&ConfigurationHistory{})
	if filter.Section != "" {
		if !ConfigSection(filter.Section).Valid() {
			return nil, 0, utils.ValidationErrorf("unknown configuration section %q", filter.Section)
		}
		dbCtx = dbCtx.Where("section = ?", filter.Section)
	}
	if filter.Key != "" {
		dbCtx = dbCtx.Where("`key` = ?", filter.Key)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := utils.NormalizePageSize(filter.PageSize)
	page := filter.Page
	if page < 1 {
		page = 1
	}
	var history []ConfigurationHistory
	err := dbCtx.Order("changed_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&history).Error
	if err != nil {
		return nil, 0, err
	}
	return history, int(total), nil
}

// EffectiveSetting resolves one key with overrides applied; used by the
// gateway for its endpoint and index names.
func EffectiveSetting(ctx context.Context, section ConfigSection, key string) (any, error) {
	values, err := GetConfigSection(ctx, section)
	if err != nil {
		return nil, err
	}
	value, ok := values[key]
	if !ok {
		return nil, utils.ValidationErrorf("unknown configuration key %s.%s", section, key)
	}
	return value, nil
}

// EffectiveString is EffectiveSetting for string-typed keys.
func EffectiveString(ctx context.Context, section ConfigSection, key string) (string, error) {
	value, err := EffectiveSetting(ctx, section, key)
	if err != nil {
		return "", err
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("configuration %s.%s is not a string", section, key)
	}
	return text, nil
}
