package domain

import "time"

// EntityType names a synced resource family
type EntityType string

const (
	EntityProducts  EntityType = "products"
	EntityCustomers EntityType = "customers"
	EntityOrders    EntityType = "orders"
)

// EntityTypes lists entity types in the conventional sync order
var EntityTypes = []EntityType{EntityProducts, EntityCustomers, EntityOrders}

// EntityCounts holds how many records were written per entity type
type EntityCounts map[EntityType]int

// Add merges other into c
func (c EntityCounts) Add(other EntityCounts) {
	for k, v := range other {
		c[k] += v
	}
}

// TenantFailure records one tenant whose sync did not complete
type TenantFailure struct {
	TenantDomain string    `json:"tenantDomain"`
	Kind         ErrorKind `json:"kind"`
	Error        string    `json:"error"`
}

// SyncReport summarises one sync run
type SyncReport struct {
	Processed  int             `json:"processed"`
	Failed     []TenantFailure `json:"failed"`
	Counts     EntityCounts    `json:"counts"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// Success reports whether every tenant in the run completed
func (r *SyncReport) Success() bool {
	return len(r.Failed) == 0
}

// NewSyncReport returns a report with initialised collections
func NewSyncReport(startedAt time.Time) *SyncReport {
	return &SyncReport{
		Failed:    []TenantFailure{},
		Counts:    EntityCounts{},
		StartedAt: startedAt,
	}
}
