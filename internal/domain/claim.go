package domain

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chesscast/backend/internal/entity"
	"github.com/chesscast/backend/internal/model"
	"github.com/chesscast/backend/internal/repository"
	"github.com/chesscast/backend/pkg/blockchain/eth"
	"github.com/chesscast/backend/pkg/enum"
	"github.com/chesscast/backend/pkg/errorx"
	"github.com/chesscast/backend/pkg/pubsub"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/chesscast/backend/pkg/xredis"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"gorm.io/gorm"
)

const SettlementTopic = "settlement"

type ClaimDomain interface {
	IssueClaim(context.Context, *model.IssueClaimRequest) (*model.IssueClaimResponse, error)
	RecordSettlement(context.Context, *model.RecordSettlementRequest) (*model.RecordSettlementResponse, error)
	ResetClaim(context.Context, *model.ResetClaimRequest) (*model.ResetClaimResponse, error)
	HealthCheck(ctx context.Context) error
}

type claimDomain struct {
	campaignRepo   repository.CampaignRepository
	shareClaimRepo repository.ShareClaimRepository
	lotteryRepo    repository.LotteryRepository
	weatherRepo    repository.WeatherRepository

	caller    eth.ClaimCaller
	signer    *eth.ClaimSigner
	publisher pubsub.Publisher

	// redisClient serializes signing per recipient across replicas. It may
	// be nil, in which case only the in-process lock applies.
	redisClient    xredis.Client
	recipientLocks *xsync.MapOf[string, *sync.Mutex]

	halted uint32
}

func NewClaimDomain(
	campaignRepo repository.CampaignRepository,
	shareClaimRepo repository.ShareClaimRepository,
	lotteryRepo repository.LotteryRepository,
	weatherRepo repository.WeatherRepository,
	caller eth.ClaimCaller,
	signer *eth.ClaimSigner,
	publisher pubsub.Publisher,
	redisClient xredis.Client,
) *claimDomain {
	return &claimDomain{
		campaignRepo:   campaignRepo,
		shareClaimRepo: shareClaimRepo,
		lotteryRepo:    lotteryRepo,
		weatherRepo:    weatherRepo,
		caller:         caller,
		signer:         signer,
		publisher:      publisher,
		redisClient:    redisClient,
		recipientLocks: xsync.NewMapOf[*sync.Mutex](),
	}
}

// HealthCheck verifies the backend signs with the key the contract trusts.
// On a mismatch every signature would revert on-chain, so issuance is halted
// entirely instead of handing out useless signatures.
func (d *claimDomain) HealthCheck(ctx context.Context) error {
	trusted, err := d.caller.SignerWallet(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read the trusted signer wallet: %v", err)
		return err
	}

	if trusted != d.signer.Address() {
		atomic.StoreUint32(&d.halted, 1)
		xcontext.Logger(ctx).Errorf(
			"Signer mismatch, issuance halted: backend signs with %s but contract trusts %s",
			d.signer.Address().Hex(), trusted.Hex())
		return errorx.New(errorx.SignerMismatch, "Signer wallet mismatch")
	}

	atomic.StoreUint32(&d.halted, 0)
	return nil
}

// claimRow is the claim-state view shared by the three claim kinds.
type claimRow struct {
	id        string
	ownerID   string
	amount    uint64
	status    entity.ClaimStatusType
	claimedAt sql.NullTime
	txHash    sql.NullString

	markInFlight func(ctx context.Context, expiredAt time.Time) error
	release      func(ctx context.Context) error
	settle       func(ctx context.Context, txHash string) error
	reset        func(ctx context.Context) error
}

func (d *claimDomain) loadClaim(
	ctx context.Context, claimType entity.ClaimType, claimID string,
) (*claimRow, error) {
	switch claimType {
	case entity.ClaimTypeShare:
		claim, err := d.shareClaimRepo.GetByID(ctx, claimID)
		if err != nil {
			return nil, err
		}

		return &claimRow{
			id:        claim.ID,
			ownerID:   claim.UserID,
			amount:    claim.Amount,
			status:    claim.Status,
			claimedAt: claim.ClaimedAt,
			txHash:    claim.TransactionHash,
			markInFlight: func(ctx context.Context, expiredAt time.Time) error {
				return d.shareClaimRepo.MarkInFlight(ctx, claim.ID, expiredAt)
			},
			release: func(ctx context.Context) error {
				return d.shareClaimRepo.Release(ctx, claim.ID)
			},
			settle: func(ctx context.Context, txHash string) error {
				return d.shareClaimRepo.Settle(ctx, claim.ID, txHash)
			},
			reset: func(ctx context.Context) error {
				return d.shareClaimRepo.Reset(ctx, claim.ID)
			},
		}, nil

	case entity.ClaimTypeLottery:
		winning, err := d.lotteryRepo.GetWinningByID(ctx, claimID)
		if err != nil {
			return nil, err
		}

		return &claimRow{
			id:        winning.ID,
			ownerID:   winning.PlayerID,
			amount:    winning.AmountWon,
			status:    winning.Status,
			claimedAt: winning.ClaimedAt,
			txHash:    winning.TransactionHash,
			markInFlight: func(ctx context.Context, expiredAt time.Time) error {
				return d.lotteryRepo.MarkWinningInFlight(ctx, winning.ID, expiredAt)
			},
			release: func(ctx context.Context) error {
				return d.lotteryRepo.ReleaseWinning(ctx, winning.ID)
			},
			settle: func(ctx context.Context, txHash string) error {
				return d.lotteryRepo.SettleWinning(ctx, winning.ID, txHash)
			},
			reset: func(ctx context.Context) error {
				return d.lotteryRepo.ResetWinningClaim(ctx, winning.ID)
			},
		}, nil

	case entity.ClaimTypeWeather:
		claim, err := d.weatherRepo.GetClaimByID(ctx, claimID)
		if err != nil {
			return nil, err
		}

		return &claimRow{
			id:        claim.ID,
			ownerID:   claim.PlayerID,
			amount:    claim.PayoutAmount,
			status:    claim.Status,
			claimedAt: claim.ClaimedAt,
			txHash:    claim.TransactionHash,
			markInFlight: func(ctx context.Context, expiredAt time.Time) error {
				return d.weatherRepo.MarkClaimInFlight(ctx, claim.ID, expiredAt)
			},
			release: func(ctx context.Context) error {
				return d.weatherRepo.ReleaseClaim(ctx, claim.ID)
			},
			settle: func(ctx context.Context, txHash string) error {
				return d.weatherRepo.SettleClaim(ctx, claim.ID, txHash)
			},
			reset: func(ctx context.Context) error {
				return d.weatherRepo.ResetClaim(ctx, claim.ID)
			},
		}, nil
	}

	return nil, gorm.ErrRecordNotFound
}

// IssueClaim provisionally locks the claim, reads the nonce and the EIP-712
// domain fresh from the contract, and returns the signature the user submits
// to claimWithSignature. The provisional lock expires on its own if the user
// abandons the claim, so an unsubmitted signature never blocks the row
// forever.
func (d *claimDomain) IssueClaim(
	ctx context.Context, req *model.IssueClaimRequest,
) (*model.IssueClaimResponse, error) {
	if atomic.LoadUint32(&d.halted) == 1 {
		return nil, errorx.New(errorx.Unavailable, "Claiming is temporarily unavailable")
	}

	if !common.IsHexAddress(req.Address) {
		return nil, errorx.New(errorx.BadRequest, "Invalid address %s", req.Address)
	}

	claimType, err := enum.ToEnum[entity.ClaimType](req.ClaimType)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid claim type %s", req.ClaimType)
	}

	recipient := common.HexToAddress(req.Address)

	// Signing is serialized per recipient so two signatures can never share
	// a nonce.
	mutex, _ := d.recipientLocks.LoadOrStore(recipient.Hex(), &sync.Mutex{})
	mutex.Lock()
	defer mutex.Unlock()

	if d.redisClient != nil {
		lockTTL := xcontext.Configs(ctx).Claim.InFlightTimeout
		if err := d.redisClient.Lock(ctx, "claim:"+recipient.Hex(), lockTTL); err != nil {
			if errors.Is(err, xredis.ErrLockNotHeld) {
				return nil, errorx.New(errorx.ClaimInFlight, "Another claim is being signed for this address")
			}

			xcontext.Logger(ctx).Errorf("Cannot take the claim lock: %v", err)
			return nil, errorx.Unknown
		}
		defer d.redisClient.Unlock(ctx, "claim:"+recipient.Hex())
	}

	var row *claimRow
	if claimType == entity.ClaimTypeShare && req.ClaimID == "" {
		row, err = d.aggregateShareClaim(ctx, recipient)
		if err != nil {
			return nil, err
		}
	} else {
		row, err = d.lockExistingClaim(ctx, claimType, req.ClaimID)
		if err != nil {
			return nil, err
		}
	}

	domain, err := d.caller.EIP712Domain(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read the claim domain: %v", err)
		d.releaseQuietly(ctx, row)
		return nil, errorx.New(errorx.ExternalChainReadFailure, "Claiming is temporarily unavailable")
	}

	nonce, err := d.caller.Nonces(ctx, recipient)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot read the claim nonce: %v", err)
		d.releaseQuietly(ctx, row)
		return nil, errorx.New(errorx.ExternalChainReadFailure, "Claiming is temporarily unavailable")
	}

	signature, err := d.signer.Sign(domain, recipient, row.amount, nonce)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sign the claim: %v", err)
		d.releaseQuietly(ctx, row)
		return nil, errorx.Unknown
	}

	return &model.IssueClaimResponse{
		ClaimID:   row.id,
		Recipient: recipient.Hex(),
		Amount:    row.amount,
		Nonce:     nonce.String(),
		Signature: "0x" + hex.EncodeToString(signature),
	}, nil
}

// aggregateShareClaim folds every not-yet-claimed share event of the user
// into one in-flight share claim.
func (d *claimDomain) aggregateShareClaim(
	ctx context.Context, recipient common.Address,
) (*claimRow, error) {
	userID := xcontext.RequestUserID(ctx)

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	events, err := d.campaignRepo.GetUnclaimedShareEvents(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get unclaimed share events: %v", err)
		return nil, errorx.Unknown
	}

	if len(events) == 0 {
		return nil, errorx.New(errorx.NotFound, "Nothing to claim")
	}

	var amount uint64
	eventIDs := make([]string, 0, len(events))
	for _, event := range events {
		amount += event.RewardAmount
		eventIDs = append(eventIDs, event.ID)
	}

	expiredAt := time.Now().Add(xcontext.Configs(ctx).Claim.InFlightTimeout)
	claim := &entity.ShareClaim{
		Base:              entity.Base{ID: uuid.NewString()},
		UserID:            userID,
		Address:           recipient.Hex(),
		Amount:            amount,
		Status:            entity.ClaimInFlight,
		InFlightExpiredAt: sql.NullTime{Time: expiredAt, Valid: true},
	}

	if err := d.shareClaimRepo.Create(ctx, claim); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create share claim: %v", err)
		return nil, errorx.Unknown
	}

	assigned, err := d.campaignRepo.AssignShareEventsToClaim(ctx, eventIDs, claim.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot assign share events: %v", err)
		return nil, errorx.Unknown
	}

	if assigned != int64(len(eventIDs)) {
		// A concurrent aggregation took some of the events first.
		return nil, errorx.New(errorx.ClaimInFlight, "Another claim is in progress")
	}

	xcontext.WithCommitDBTransaction(ctx)

	return &claimRow{
		id:      claim.ID,
		ownerID: claim.UserID,
		amount:  claim.Amount,
		status:  claim.Status,
		release: func(ctx context.Context) error {
			return d.shareClaimRepo.Release(ctx, claim.ID)
		},
	}, nil
}

func (d *claimDomain) lockExistingClaim(
	ctx context.Context, claimType entity.ClaimType, claimID string,
) (*claimRow, error) {
	row, err := d.loadClaim(ctx, claimType, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found claim")
		}

		xcontext.Logger(ctx).Errorf("Cannot get claim: %v", err)
		return nil, errorx.Unknown
	}

	if row.ownerID != xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if row.status == entity.ClaimClaimed {
		return nil, errorx.New(errorx.AlreadyClaimed, "The claim is already settled")
	}

	expiredAt := time.Now().Add(xcontext.Configs(ctx).Claim.InFlightTimeout)
	if err := row.markInFlight(ctx, expiredAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.ClaimInFlight, "The claim is already being processed")
		}

		xcontext.Logger(ctx).Errorf("Cannot mark claim in flight: %v", err)
		return nil, errorx.Unknown
	}

	return row, nil
}

func (d *claimDomain) releaseQuietly(ctx context.Context, row *claimRow) {
	if row.release == nil {
		return
	}

	if err := row.release(ctx); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot release claim %s: %v", row.id, err)
	}
}

// RecordSettlement marks the claim settled with its transaction hash. It is
// idempotent for the hash already recorded and refuses any other hash, so a
// payout can never be counted twice.
func (d *claimDomain) RecordSettlement(
	ctx context.Context, req *model.RecordSettlementRequest,
) (*model.RecordSettlementResponse, error) {
	claimType, err := enum.ToEnum[entity.ClaimType](req.ClaimType)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid claim type %s", req.ClaimType)
	}

	if req.TransactionHash == "" {
		return nil, errorx.New(errorx.BadRequest, "Transaction hash is required")
	}

	row, err := d.loadClaim(ctx, claimType, req.ClaimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found claim")
		}

		xcontext.Logger(ctx).Errorf("Cannot get claim: %v", err)
		return nil, errorx.Unknown
	}

	if row.claimedAt.Valid {
		if row.txHash.Valid && row.txHash.String == req.TransactionHash {
			return &model.RecordSettlementResponse{}, nil
		}

		return nil, errorx.New(errorx.SettlementConflict,
			"The claim is already settled with another transaction")
	}

	if err := row.settle(ctx, req.TransactionHash); err != nil {
		if isUniqueViolation(err) {
			return nil, errorx.New(errorx.SettlementConflict,
				"The transaction is already recorded for another claim")
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Lost a settlement race. Re-read to decide whether it was the
			// same transaction.
			fresh, ferr := d.loadClaim(ctx, claimType, req.ClaimID)
			if ferr != nil {
				xcontext.Logger(ctx).Errorf("Cannot re-read claim: %v", ferr)
				return nil, errorx.Unknown
			}

			if fresh.txHash.Valid && fresh.txHash.String == req.TransactionHash {
				return &model.RecordSettlementResponse{}, nil
			}

			return nil, errorx.New(errorx.SettlementConflict,
				"The claim is already settled with another transaction")
		}

		xcontext.Logger(ctx).Errorf("Cannot settle claim: %v", err)
		return nil, errorx.Unknown
	}

	d.publishSettlement(ctx, claimType, row, req.TransactionHash)
	return &model.RecordSettlementResponse{}, nil
}

// isUniqueViolation matches the duplicate-key error of the transaction hash
// unique index. Neither driver in use exposes a typed error for it.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func (d *claimDomain) publishSettlement(
	ctx context.Context, claimType entity.ClaimType, row *claimRow, txHash string,
) {
	if d.publisher == nil {
		return
	}

	event := model.SettlementEvent{
		ClaimType:       string(claimType),
		ClaimID:         row.id,
		Recipient:       row.ownerID,
		Amount:          row.amount,
		TransactionHash: txHash,
	}

	msg, err := json.Marshal(event)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal settlement event: %v", err)
		return
	}

	err = d.publisher.Publish(ctx, SettlementTopic, &pubsub.Pack{Key: []byte(row.id), Msg: msg})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish settlement event: %v", err)
	}
}

// ResetClaim is the admin recovery for a settlement recorded by mistake. It
// refuses when the recorded transaction actually succeeded on-chain.
func (d *claimDomain) ResetClaim(
	ctx context.Context, req *model.ResetClaimRequest,
) (*model.ResetClaimResponse, error) {
	claimType, err := enum.ToEnum[entity.ClaimType](req.ClaimType)
	if err != nil {
		return nil, errorx.New(errorx.BadRequest, "Invalid claim type %s", req.ClaimType)
	}

	row, err := d.loadClaim(ctx, claimType, req.ClaimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found claim")
		}

		xcontext.Logger(ctx).Errorf("Cannot get claim: %v", err)
		return nil, errorx.Unknown
	}

	if row.txHash.Valid {
		receipt, err := d.caller.TransactionReceipt(ctx, common.HexToHash(row.txHash.String))
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			xcontext.Logger(ctx).Errorf("Cannot check the settlement receipt: %v", err)
			return nil, errorx.New(errorx.ExternalChainReadFailure, "Cannot verify the settlement on-chain")
		}

		if err == nil && receipt.Status == ethtypes.ReceiptStatusSuccessful {
			return nil, errorx.New(errorx.AlreadyClaimed,
				"The settlement transaction succeeded on-chain")
		}
	}

	if err := row.reset(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot reset claim: %v", err)
		return nil, errorx.Unknown
	}

	return &model.ResetClaimResponse{}, nil
}
