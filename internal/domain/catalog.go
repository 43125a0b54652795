package domain

import "time"

type Provider struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Website  string `json:"website"`
	IsActive bool   `json:"isActive"`
}

// Location rows are shared across entries and unique on Name+Address.
type Location struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Province     string `json:"province"`
	FacilityType string `json:"facilityType"`
}

// CatalogEntry is the persisted form of an activity, unique on
// (ProviderID, ExternalID). Entries are never deleted; an entry that
// was not sighted in the latest run has IsActive=false.
type CatalogEntry struct {
	ParsedActivity

	ProviderID string     `json:"providerId" validate:"required"`
	ExternalID string     `json:"externalId" validate:"required,max=512"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	LastSeenAt time.Time  `json:"lastSeenAt"`
}

type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s SyncStatus) Terminal() bool {
	return s == SyncCompleted || s == SyncFailed
}

// SyncJob is the audit row written for every pipeline run.
type SyncJob struct {
	ID              string     `json:"id"`
	ProviderID      string     `json:"providerId"`
	Status          SyncStatus `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	ActivitiesFound int        `json:"activitiesFound"`
	Created         int        `json:"created"`
	Updated         int        `json:"updated"`
	Removed         int        `json:"removed"`
	Errors          int        `json:"errors"`
	Error           string     `json:"error,omitempty"`
}
