package adapter

import "context"

// UpstreamUser is a provisioned account on the VPN panel.
type UpstreamUser struct {
	UUID             string `json:"uuid"`
	Username         string `json:"username"`
	Status           string `json:"status"`
	SubscriptionURL  string `json:"subscriptionUrl"`
	TrafficLimitByte int64  `json:"trafficLimitBytes"`
	UsedTrafficByte  int64  `json:"usedTrafficBytes"`
	CreatedAt        string `json:"createdAt"`
	ExpireAt         string `json:"expireAt"`
	Description      string `json:"description,omitempty"`
}

// CreateUserRequest is the account-creation payload for the panel.
type CreateUserRequest struct {
	Username             string   `json:"username"`
	Status               string   `json:"status"`
	TrafficLimitBytes    int64    `json:"trafficLimitBytes"`
	TrafficLimitStrategy string   `json:"trafficLimitStrategy"`
	ExpireAt             string   `json:"expireAt"` // RFC3339
	Description          string   `json:"description"`
	ActiveInternalSquads []string `json:"activeInternalSquads"`
}

// UpstreamGateway is the provisioning backend client. CreateUser errors carry
// transport classification (see infra/httpx) for the provisioner's retry
// policy. ListUsers is a read-only reporting path and tolerates partial data.
type UpstreamGateway interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*UpstreamUser, error)
	ListUsers(ctx context.Context) ([]UpstreamUser, error)
}
