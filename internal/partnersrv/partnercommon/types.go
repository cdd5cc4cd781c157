// Package partnercommon provides shared types and context utilities for the
// partner service: entity status enumerations and request actor management.
package partnercommon

// ServerVersion is the version of the partner service.
const ServerVersion = "0.1.0"

// ApiVersion is the version of the HTTP API.
const ApiVersion = "0.1.0-alpha.1"

// PartnerStatus tracks the onboarding state of a partner organization.
type PartnerStatus string

const (
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusSuspended PartnerStatus = "suspended"
)

// ProcessingStatus is the pipeline's record of whether a product has been
// analyzed and enriched.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// ValidProcessingStatuses returns every processing status the products table accepts.
func ValidProcessingStatuses() []ProcessingStatus {
	return []ProcessingStatus{
		ProcessingStatusPending,
		ProcessingStatusProcessing,
		ProcessingStatusCompleted,
		ProcessingStatusFailed,
	}
}

// IsValidProcessingStatus reports whether s is a known processing status.
func IsValidProcessingStatus(s string) bool {
	for _, v := range ValidProcessingStatuses() {
		if string(v) == s {
			return true
		}
	}
	return false
}

// PackageStatus tracks the review state of an insurance package.
type PackageStatus string

const (
	PackageStatusDraft       PackageStatus = "draft"
	PackageStatusEligible    PackageStatus = "eligible"
	PackageStatusNotEligible PackageStatus = "not_eligible"
	PackageStatusApproved    PackageStatus = "approved"
	PackageStatusRejected    PackageStatus = "rejected"
)

// PackageCreator identifies who authored an insurance package.
type PackageCreator string

const (
	PackageCreatorAI    PackageCreator = "ai"
	PackageCreatorHuman PackageCreator = "human"
)
