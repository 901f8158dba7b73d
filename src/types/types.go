package types

import "time"

// Trade roles accepted on a verification request.
const (
	RoleImport = "Import"
	RoleExport = "Export"
)

// Activity levels
const (
	ActivityActive    = "Active"
	ActivityDormant   = "Dormant"
	ActivityInactive  = "Inactive"
	ActivitySuspended = "Suspended"
	ActivityUnknown   = "Unknown"
)

// Confidence levels
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// Flag severities
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Lifecycle states for a verification record.
const (
	StateCreated        = "Created"
	StateCollecting     = "Collecting"
	StateCollected      = "Collected"
	StateAnalyzing      = "Analyzing"
	StateCompleted      = "Completed"
	StateAnalysisFailed = "AnalysisFailed"
)

// Registry match statuses
const (
	RegistryFound       = "Found"
	RegistryNotFound    = "NotFound"
	RegistryUnsupported = "Unsupported"
)

// Per-list sanctions screen statuses
const (
	SanctionsMatched    = "Matched"
	SanctionsNotMatched = "NotMatched"
	SanctionsError      = "Error"
)

// Flag categories emitted by the risk engine.
const (
	FlagSanctionsMatch    = "sanctions_match"
	FlagHighRisk          = "high_risk"
	FlagComplianceIssue   = "compliance_issue"
	FlagDataQuality       = "data_quality"
	FlagSourceReliability = "source_reliability"
)

// Flag is one severity-tagged compliance flag. Slice order is evaluation
// order, not display priority.
type Flag struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Verification is the long-lived aggregate for one verification request:
// the accepted input, the frozen evidence bundle, the derived risk
// assessment and the lifecycle state. Evidence, flags and sources are
// stored as JSON text columns.
type Verification struct {
	ID            string `gorm:"primaryKey;size:36"`
	Client        string `gorm:"size:255;not null;index:idx_verifications_client"`
	ClientCountry string `gorm:"size:2;not null"`
	ClientRole    string `gorm:"size:16;not null"`
	ProductName   string `gorm:"size:500"`

	State string `gorm:"size:32;not null;index:idx_verifications_state"`

	// Evidence bundle, frozen after collection.
	Evidence   string  `gorm:"column:evidence;type:text"` // JSON collector.Bundle
	Sources    string  `gorm:"column:sources;type:text"`  // JSON array, completion order
	WebsiteURL *string `gorm:"column:website_url;size:500"`
	PubDate    *string `gorm:"column:publication_date;size:50"`

	// Risk assessment, null until analysis resolves.
	Narrative     *string  `gorm:"type:text"`
	ActivityLevel *string  `gorm:"size:32"`
	RiskScore     *float64 `gorm:"column:risk_score"`
	Flags         string   `gorm:"type:text"` // JSON array of Flag
	Confidence    *string  `gorm:"size:16"`
	IsRedFlag     bool     `gorm:"column:is_red_flag;default:false"`

	CreatedAt       time.Time
	DataCollectedAt *time.Time
	LastVerifiedAt  *time.Time
	UpdatedAt       time.Time
}

// TableName implements gorm's tabler interface.
func (Verification) TableName() string {
	return "verifications"
}

// Setting is a process configuration row; values override env defaults.
type Setting struct {
	ID    uint16 `gorm:"primaryKey"`
	Name  string `gorm:"size:64;unique;not null"`
	Value string `gorm:"size:512"`
}
