package model

import "time"

type WeatherRound struct {
	ID             string    `json:"id"`
	RoundNumber    int64     `json:"round_number"`
	Status         string    `json:"status"`
	HouseBase      uint64    `json:"house_base"`
	TotalPool      uint64    `json:"total_pool"`
	SunnyQuantity  uint64    `json:"sunny_quantity"`
	RainyQuantity  uint64    `json:"rainy_quantity"`
	TreasuryAmount uint64    `json:"treasury_amount"`
	WinningSide    string    `json:"winning_side,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type WeatherTicket struct {
	ID        int64  `json:"id"`
	RoundID   string `json:"round_id"`
	PlayerID  string `json:"player_id"`
	Side      string `json:"side"`
	Quantity  uint64 `json:"quantity"`
	TotalCost uint64 `json:"total_cost"`
}

type WeatherClaim struct {
	ID              string `json:"id"`
	RoundID         string `json:"round_id"`
	PlayerID        string `json:"player_id"`
	PayoutAmount    uint64 `json:"payout_amount"`
	Status          string `json:"status"`
	ClaimedAt       string `json:"claimed_at,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
}

type CreateWeatherRoundRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type CreateWeatherRoundResponse struct {
	Round WeatherRound `json:"round"`
}

type GetWeatherRoundRequest struct {
	RoundID string `json:"round_id"`
}

type GetWeatherRoundResponse struct {
	Round WeatherRound `json:"round"`
}

type BuyWeatherTicketsRequest struct {
	Side     string `json:"side"`
	Quantity uint64 `json:"quantity"`
}

type BuyWeatherTicketsResponse struct {
	Ticket WeatherTicket `json:"ticket"`
}

type GetWeatherClaimsRequest struct {
	RoundID  string `json:"round_id"`
	PlayerID string `json:"player_id"`
}

type GetWeatherClaimsResponse struct {
	Claims []WeatherClaim `json:"claims"`
}

type DrawWeatherRoundRequest struct {
	RoundID     string `json:"round_id"`
	WinningSide string `json:"winning_side"`
	Force       bool   `json:"force"`
}

type DrawWeatherRoundResponse struct {
	Round  WeatherRound   `json:"round"`
	Claims []WeatherClaim `json:"claims"`
}
