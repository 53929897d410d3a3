package domain

import "time"

// RegisterTokenRequest is the payload for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	TenantID string `json:"tenant_id" validate:"required"`
	Platform string `json:"platform"`
}

// DeviceToken is one push-capable device endpoint. The token string itself
// is the storage key, so a tenant can never hold duplicates.
type DeviceToken struct {
	Token     string    `json:"token" dynamodbav:"token"`
	TenantID  string    `json:"tenant_id" dynamodbav:"tenant_id"`
	Platform  string    `json:"platform" dynamodbav:"platform"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}
