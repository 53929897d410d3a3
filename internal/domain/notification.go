package domain

import "time"

// Notification types as stored on the record and carried in push payloads.
const (
	NotificationTypeExpired = "expired_product"
	NotificationTypeNear    = "near_expiry"
	NotificationTypeInfo    = "info"
)

// Notification is the persisted record created when a scan finds something
// to report. The engine never mutates it after creation; reads and
// dismissal belong to the client-facing surface.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	TenantID       string    `json:"tenant_id" dynamodbav:"tenant_id"`
	Title          string    `json:"title" dynamodbav:"title"`
	Body           string    `json:"body" dynamodbav:"body"`
	Type           string    `json:"type" dynamodbav:"type"`
	ProductIDs     []string  `json:"product_ids" dynamodbav:"product_ids"`
	Readed         int       `json:"readed" dynamodbav:"readed"` // legacy field name preserved
	ScanDate       string    `json:"scan_date" dynamodbav:"scan_date"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
