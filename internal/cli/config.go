package cli

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"

	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/devwallet"
	"github.com/yolodolo42/walletconnector/internal/tx"
)

const envPrefix = "WALLETCONNECTOR"

// Config is the file/env configuration of the CLI.
type Config struct {
	DataDir     string                      `mapstructure:"data_dir"`
	LogLevel    string                      `mapstructure:"log_level"`
	AutoApprove bool                        `mapstructure:"auto_approve"`
	Networks    []chain.Network             `mapstructure:"networks"`
	Environment devwallet.EnvironmentConfig `mapstructure:"environment"`
	EVM         EVMConfig                   `mapstructure:"evm"`
	Solana      SolanaConfig                `mapstructure:"solana"`
	Policy      PolicyConfig                `mapstructure:"policy"`
}

type EVMConfig struct {
	// Account selects the keystore account; the only account is used when empty.
	Account string `mapstructure:"account"`
	// Password unlocks the account without prompting. Prefer the env variable.
	Password string `mapstructure:"password"`
	ChainID  uint64 `mapstructure:"chain_id"`
}

type SolanaConfig struct {
	Keypair string `mapstructure:"keypair"`
	RPCURL  string `mapstructure:"rpc_url"`
}

type PolicyConfig struct {
	MaxPerTxWei string   `mapstructure:"max_per_tx_wei"`
	AllowTo     []string `mapstructure:"allow_to"`
	DenyTo      []string `mapstructure:"deny_to"`
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletconnector"
	}
	return filepath.Join(home, ".walletconnector")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "error")
	v.SetDefault("auto_approve", false)
	v.SetDefault("environment.ethereum", string(devwallet.VendorMetaMask))
	v.SetDefault("environment.phantom", true)
	v.SetDefault("environment.solflare", false)
	v.SetDefault("environment.backpack", false)
	v.SetDefault("evm.account", "")
	v.SetDefault("evm.password", "")
	v.SetDefault("evm.chain_id", 1)
	v.SetDefault("solana.keypair", "")
	v.SetDefault("solana.rpc_url", rpc.DevNet_RPC)
	v.SetDefault("policy.max_per_tx_wei", "")
}

// readConfig loads cfgFile, or config.yaml from the data dir. A missing
// default file is fine; a missing explicit one is not.
func readConfig(v *viper.Viper, cfgFile string) error {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.AddConfigPath(v.GetString("data_dir"))
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Solana.Keypair == "" {
		cfg.Solana.Keypair = filepath.Join(cfg.DataDir, "solana", "id.json")
	}
	return &cfg, nil
}

func (c *Config) policy() (tx.Policy, error) {
	var p tx.Policy
	if c.Policy.MaxPerTxWei != "" {
		limit, ok := new(big.Int).SetString(c.Policy.MaxPerTxWei, 10)
		if !ok || limit.Sign() < 0 {
			return p, fmt.Errorf("invalid policy.max_per_tx_wei %q", c.Policy.MaxPerTxWei)
		}
		p.MaxPerTxWei = limit
	}
	for _, s := range c.Policy.AllowTo {
		if !common.IsHexAddress(s) {
			return p, fmt.Errorf("invalid policy.allow_to address %q", s)
		}
		p.AllowTo = append(p.AllowTo, common.HexToAddress(s))
	}
	for _, s := range c.Policy.DenyTo {
		if !common.IsHexAddress(s) {
			return p, fmt.Errorf("invalid policy.deny_to address %q", s)
		}
		p.DenyTo = append(p.DenyTo, common.HexToAddress(s))
	}
	return p, nil
}
