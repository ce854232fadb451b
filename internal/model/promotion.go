package model

type Campaign struct {
	ID              string `json:"id"`
	OwnerID         string `json:"owner_id"`
	RewardPerShare  uint64 `json:"reward_per_share"`
	TotalBudget     uint64 `json:"total_budget"`
	RemainingBudget uint64 `json:"remaining_budget"`
	SharesCount     int    `json:"shares_count"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

type ShareEvent struct {
	ID           string `json:"id"`
	CampaignID   string `json:"campaign_id"`
	UserID       string `json:"user_id"`
	RewardAmount uint64 `json:"reward_amount"`
	CreatedAt    string `json:"created_at"`
}

type CreateCampaignRequest struct {
	RewardPerShare uint64 `json:"reward_per_share"`
	TotalBudget    uint64 `json:"total_budget"`
}

type CreateCampaignResponse struct {
	ID string `json:"id"`
}

type GetCampaignRequest struct {
	CampaignID string `json:"campaign_id"`
}

type GetCampaignResponse struct {
	Campaign Campaign `json:"campaign"`
}

type RecordShareRequest struct {
	CampaignID string `json:"campaign_id"`
}

type RecordShareResponse struct {
	ShareEvent ShareEvent `json:"share_event"`
}

type PauseCampaignRequest struct {
	CampaignID string `json:"campaign_id"`
}

type PauseCampaignResponse struct{}

type ResumeCampaignRequest struct {
	CampaignID string `json:"campaign_id"`
}

type ResumeCampaignResponse struct{}
