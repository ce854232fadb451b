package model

import "time"

type LotteryRound struct {
	ID             string    `json:"id"`
	RoundNumber    int64     `json:"round_number"`
	Status         string    `json:"status"`
	Jackpot        uint64    `json:"jackpot"`
	CarryOver      uint64    `json:"carry_over"`
	TreasuryAmount uint64    `json:"treasury_amount"`
	WinningNumber  int       `json:"winning_number,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type LotteryTicket struct {
	ID            int64  `json:"id"`
	RoundID       string `json:"round_id"`
	PlayerID      string `json:"player_id"`
	Number        int    `json:"number"`
	PurchasePrice uint64 `json:"purchase_price"`
}

type LotteryWinning struct {
	ID              string `json:"id"`
	RoundID         string `json:"round_id"`
	TicketID        int64  `json:"ticket_id"`
	PlayerID        string `json:"player_id"`
	AmountWon       uint64 `json:"amount_won"`
	Status          string `json:"status"`
	ClaimedAt       string `json:"claimed_at,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
}

type CreateLotteryRoundRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type CreateLotteryRoundResponse struct {
	Round LotteryRound `json:"round"`
}

type GetLotteryRoundRequest struct {
	RoundID string `json:"round_id"`
}

type GetLotteryRoundResponse struct {
	Round LotteryRound `json:"round"`
}

type BuyLotteryTicketsRequest struct {
	Number   int `json:"number"`
	Quantity int `json:"quantity"`
}

type BuyLotteryTicketsResponse struct {
	Tickets []LotteryTicket `json:"tickets"`
}

type DrawLotteryRoundRequest struct {
	RoundID string `json:"round_id"`
	Force   bool   `json:"force"`
}

type DrawLotteryRoundResponse struct {
	Round    LotteryRound     `json:"round"`
	Winnings []LotteryWinning `json:"winnings"`
}

type GetLotteryWinningsRequest struct {
	RoundID  string `json:"round_id"`
	PlayerID string `json:"player_id"`
}

type GetLotteryWinningsResponse struct {
	Winnings []LotteryWinning `json:"winnings"`
}
