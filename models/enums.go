package models

type TableType string

const (
	TableTypeTable     TableType = "TABLE"
	TableTypeView      TableType = "VIEW"
	TableTypeExternal  TableType = "EXTERNAL"
	TableTypeTemporary TableType = "TEMPORARY"
)

func (t TableType) Valid() bool {
	switch t {
	case TableTypeTable, TableTypeView, TableTypeExternal, TableTypeTemporary:
		return true
	}
	return false
}

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusAnalyzing AnalysisStatus = "analyzing"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

func (s AnalysisStatus) Valid() bool {
	switch s {
	case AnalysisStatusPending, AnalysisStatusAnalyzing, AnalysisStatusCompleted, AnalysisStatusFailed:
		return true
	}
	return false
}

// ColumnStatus is the mapping state of a source column.
// unmapped -> suggested -> mapped -> (unmap) -> unmapped
type ColumnStatus string

const (
	ColumnStatusUnmapped  ColumnStatus = "unmapped"
	ColumnStatusSuggested ColumnStatus = "suggested"
	ColumnStatusMapped    ColumnStatus = "mapped"
)

func (s ColumnStatus) Valid() bool {
	switch s {
	case ColumnStatusUnmapped, ColumnStatusSuggested, ColumnStatusMapped:
		return true
	}
	return false
}

type SchemaType string

const (
	SchemaTypeSemantic    SchemaType = "semantic"
	SchemaTypeDimensional SchemaType = "dimensional"
	SchemaTypeNormalized  SchemaType = "normalized"
	SchemaTypeCustom      SchemaType = "custom"
)

func (s SchemaType) Valid() bool {
	switch s {
	case SchemaTypeSemantic, SchemaTypeDimensional, SchemaTypeNormalized, SchemaTypeCustom:
		return true
	}
	return false
}

type MappingType string

const (
	MappingTypeManual       MappingType = "manual"
	MappingTypeAISuggestion MappingType = "ai_suggestion"
	MappingTypeTemplate     MappingType = "template"
)

func (t MappingType) Valid() bool {
	switch t {
	case MappingTypeManual, MappingTypeAISuggestion, MappingTypeTemplate:
		return true
	}
	return false
}

type MappingStatus string

const (
	MappingStatusPending   MappingStatus = "pending"
	MappingStatusValidated MappingStatus = "validated"
	MappingStatusRejected  MappingStatus = "rejected"
	// MappingStatusArchived marks a mapping superseded under the archive policy.
	MappingStatusArchived MappingStatus = "archived"
)

func (s MappingStatus) Valid() bool {
	switch s {
	case MappingStatusPending, MappingStatusValidated, MappingStatusRejected, MappingStatusArchived:
		return true
	}
	return false
}

// Active mappings are the ones that count toward the one-per-column invariant.
func (s MappingStatus) Active() bool {
	return s == MappingStatusPending || s == MappingStatusValidated
}

type TransformationLanguage string

const (
	TransformationLanguageSQL    TransformationLanguage = "sql"
	TransformationLanguagePython TransformationLanguage = "python"
	TransformationLanguageSpark  TransformationLanguage = "spark"
	TransformationLanguageCustom TransformationLanguage = "custom"
)

func (l TransformationLanguage) Valid() bool {
	switch l {
	case TransformationLanguageSQL, TransformationLanguagePython, TransformationLanguageSpark, TransformationLanguageCustom:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusArchived  SessionStatus = "archived"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusPaused, SessionStatusCompleted, SessionStatusArchived:
		return true
	}
	return false
}

// ConfigSection enumerates the fixed configuration sections; keys are not
// user-extensible outside this set.
type ConfigSection string

const (
	ConfigSectionDatabase     ConfigSection = "database"
	ConfigSectionAIModel      ConfigSection = "ai_model"
	ConfigSectionVectorSearch ConfigSection = "vector_search"
	ConfigSectionUI           ConfigSection = "ui"
	ConfigSectionSupport      ConfigSection = "support"
	ConfigSectionSecurity     ConfigSection = "security"
)

func (s ConfigSection) Valid() bool {
	switch s {
	case ConfigSectionDatabase, ConfigSectionAIModel, ConfigSectionVectorSearch,
		ConfigSectionUI, ConfigSectionSupport, ConfigSectionSecurity:
		return true
	}
	return false
}

func AllConfigSections() []ConfigSection {
	return []ConfigSection{
		ConfigSectionDatabase,
		ConfigSectionAIModel,
		ConfigSectionVectorSearch,
		ConfigSectionUI,
		ConfigSectionSupport,
		ConfigSectionSecurity,
	}
}

type UserRole string

const (
	UserRoleAdmin UserRole = "A"
	UserRoleUser  UserRole = "U"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// SupersedePolicy controls what happens to an existing active mapping when a
// new mapping is created for the same source column.
type SupersedePolicy string

const (
	SupersedeReplace   SupersedePolicy = "replace"
	SupersedeArchive   SupersedePolicy = "archive"
	SupersedeRejectNew SupersedePolicy = "reject-new"
)

func (p SupersedePolicy) Valid() bool {
	switch p {
	case SupersedeReplace, SupersedeArchive, SupersedeRejectNew:
		return true
	}
	return false
}

type MergeStrategy string

const (
	MergeStrategyMerge   MergeStrategy = "merge"
	MergeStrategyReplace MergeStrategy = "replace"
)

func (s MergeStrategy) Valid() bool {
	return s == MergeStrategyMerge || s == MergeStrategyReplace
}
