package model

import (
	"time"

	"github.com/google/uuid"
)

// Resource is a stock entry offered by an institution, modeled only to the
// depth the availability aggregation needs.
type Resource struct {
	ID            uuid.UUID `json:"id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	Category      string    `json:"category"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	Available     int       `json:"available"`
}

// ResourceRequestStatus is the lifecycle of a resource request.
type ResourceRequestStatus string

const (
	ResourceRequestPending   ResourceRequestStatus = "pending"
	ResourceRequestApproved  ResourceRequestStatus = "approved"
	ResourceRequestDelivered ResourceRequestStatus = "delivered"
	ResourceRequestRejected  ResourceRequestStatus = "rejected"
)

// ResourceRequest asks a providing institution for stock during a disaster.
type ResourceRequest struct {
	ID                uuid.UUID             `json:"id"`
	DisasterID        uuid.UUID             `json:"disaster_id"`
	Category          string                `json:"category"`
	Name              string                `json:"name"`
	RequestedQuantity int                   `json:"requested_quantity"`
	ApprovedQuantity  int                   `json:"approved_quantity"`
	Status            ResourceRequestStatus `json:"status"`
	CreatedAt         time.Time             `json:"created_at"`
}
