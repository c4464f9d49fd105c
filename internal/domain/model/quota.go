package model

import "time"

// QuotaRecord tracks free-tier usage for one anonymous fingerprint.
// RestoreCount only rises, one at a time, after a successful free restore.
// ReservedAt marks a free restore that is in flight.
type QuotaRecord struct {
	Fingerprint   string     `gorm:"size:255;primaryKey" json:"fingerprint"`
	RestoreCount  int        `gorm:"not null;default:0;check:chk_quota_records_count,restore_count >= 0" json:"restore_count"`
	LastRestoreAt *time.Time `json:"last_restore_at,omitempty"`
	ReservedAt    *time.Time `json:"reserved_at,omitempty"`
	CreatedAt     time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (QuotaRecord) TableName() string {
	return "quota_records"
}

// QuotaStatus is the client-facing view of a fingerprint's allowance.
type QuotaStatus struct {
	Remaining       int    `json:"remaining"`
	Limit           int    `json:"limit"`
	RequiresUpgrade bool   `json:"requires_upgrade"`
	UpgradeURL      string `json:"upgrade_url,omitempty"`
}
