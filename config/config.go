package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env string

	Database    DatabaseConfigs
	ApiServer   ServerConfigs
	Redis       RedisConfigs
	Kafka       KafkaConfigs
	Blockchain  BlockchainConfigs
	Promotion   PromotionConfigs
	Lottery     LotteryConfigs
	WeatherPool WeatherPoolConfigs
	Claim       ClaimConfigs

	SnowFlakeNode int64
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr string
}

type BlockchainConfigs struct {
	Chain                string   `toml:"chain"`
	Rpcs                 []string `toml:"rpcs"`
	ChainID              int64    `toml:"chain_id"`
	ClaimContractAddress string   `toml:"claim_contract_address"`

	// SignerPrivateKey is the hex-encoded key the claim contract trusts as
	// signerWallet. It is never read from the chain file.
	SignerPrivateKey string `toml:"-"`
}

// LoadChainConfig reads the chain parameters from a TOML file so a contract
// redeploy is a config change, not a code change.
func LoadChainConfig(path string) (BlockchainConfigs, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return BlockchainConfigs{}, err
	}

	var cfg BlockchainConfigs
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return BlockchainConfigs{}, err
	}

	return cfg, nil
}

type PromotionConfigs struct {
	// ShareCooldown is the rolling window inside which a user can be
	// rewarded at most once per campaign.
	ShareCooldown time.Duration
}

type LotteryConfigs struct {
	TicketPrice uint64
	BaseJackpot uint64

	// CarryOverRateBps is the share of a round's ticket revenue that seeds
	// the next round's jackpot, in basis points.
	CarryOverRateBps uint64

	MaxNumber   int
	MaxQuantity int
}

type WeatherPoolConfigs struct {
	UnitPrice uint64
	HouseBase uint64

	// TreasuryRateBps is the house edge taken from the total pool at draw
	// time, in basis points.
	TreasuryRateBps uint64
}

type ClaimConfigs struct {
	// InFlightTimeout bounds how long a claim can stay provisionally locked
	// before it becomes claimable again.
	InFlightTimeout time.Duration
}
