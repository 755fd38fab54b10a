package interfaces

import "cartbot/domain/entities"

// Risk levels reported by SecurityLayer.GetRiskLevel
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// SecurityLayer defines the checks an intent passes before the browser acts on it
type SecurityLayer interface {
	// CheckIntent returns an error when the intent must not be followed
	CheckIntent(intent entities.Intent) error

	// GetRiskLevel returns the risk level of navigating to the intent's website.
	// It does not block; CheckIntent decides what is refused.
	GetRiskLevel(intent entities.Intent) string
}
