package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	solana "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yolodolo42/walletconnector/internal/activity"
	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/connector"
	"github.com/yolodolo42/walletconnector/internal/devwallet"
	"github.com/yolodolo42/walletconnector/internal/logger"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

var errNoSession = errors.New("no wallet connected; run 'walletconnector connect' first")

// runtime is everything a command needs to talk to the wallets.
type runtime struct {
	cfg      *Config
	lggr     logger.Logger
	networks *chain.Registry
	backend  *chain.Client
	evmKey   *devwallet.Key
	env      *devwallet.Environment
	wallets  *wallet.Registry
	manager  *connector.Manager
}

func newLogger(level string) (logger.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return logger.NewWith(func(cfg *zap.Config) {
		cfg.Level.SetLevel(lvl)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		cfg.DisableStacktrace = true
	})
}

func (a *app) newRuntime() (*runtime, error) {
	cfg, err := loadConfig(a.v)
	if err != nil {
		return nil, err
	}
	lggr, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	networks, err := chain.NewDefaultRegistry(cfg.Networks...)
	if err != nil {
		return nil, fmt.Errorf("invalid networks config: %w", err)
	}
	policy, err := cfg.policy()
	if err != nil {
		return nil, err
	}
	auths, err := devwallet.OpenAuthorizationStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	evmKey, err := a.openEVMKey(cfg)
	if err != nil {
		return nil, err
	}
	solKey, err := openSolanaKey(cfg)
	if err != nil {
		return nil, err
	}

	backend := chain.NewClient(networks)
	env, err := devwallet.NewEnvironment(cfg.Environment, devwallet.Deps{
		EVMKey:    evmKey,
		SolanaKey: solKey,
		ChainID:   cfg.EVM.ChainID,
		Networks:  networks,
		Backend:   backend,
		Auths:     auths,
		Policy:    policy,
		Approve:   a.approver(cfg),
		Logger:    lggr.Named("devwallet"),
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	wallets := wallet.NewDefaultRegistry(env)
	manager, err := connector.New(wallets, networks, connector.WithLogger(lggr.Named("connector")))
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		lggr:     lggr,
		networks: networks,
		backend:  backend,
		evmKey:   evmKey,
		env:      env,
		wallets:  wallets,
		manager:  manager,
	}, nil
}

func (r *runtime) Close() {
	r.backend.Close()
	if r.evmKey != nil {
		r.evmKey.Lock()
	}
	_ = r.lggr.Sync()
}

// session silently reattaches to a previously approved wallet.
func (r *runtime) session(ctx context.Context) (connector.Session, error) {
	s, ok, err := r.manager.CheckExistingConnection(ctx)
	if err != nil {
		return connector.Session{}, err
	}
	if !ok {
		return connector.Session{}, errNoSession
	}
	return s, nil
}

// record appends a submitted transaction to the activity log. The
// transaction is already on its way, so failures are only logged.
func (r *runtime) record(ctx context.Context, e activity.Entry) {
	store, err := activity.Open(r.cfg.DataDir)
	if err != nil {
		r.lggr.Warnw("Failed to open activity log", "err", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, e); err != nil {
		r.lggr.Warnw("Failed to record transaction", "tx", e.TxID, "err", err)
	}
}

// openEVMKey returns the configured keystore account, or nil when the
// keystore is empty. The key is decrypted on first signature.
func (a *app) openEVMKey(cfg *Config) (*devwallet.Key, error) {
	ks, err := devwallet.OpenKeystore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	accounts := ks.Accounts()

	var address common.Address
	switch {
	case cfg.EVM.Account != "":
		if !common.IsHexAddress(cfg.EVM.Account) {
			return nil, fmt.Errorf("invalid evm.account %q", cfg.EVM.Account)
		}
		address = common.HexToAddress(cfg.EVM.Account)
	case len(accounts) == 0:
		return nil, nil
	case len(accounts) == 1:
		address = accounts[0].Address
	default:
		return nil, fmt.Errorf("keystore holds %d accounts; set evm.account to pick one", len(accounts))
	}

	return ks.Open(address, func() (string, error) {
		if cfg.EVM.Password != "" {
			return cfg.EVM.Password, nil
		}
		if !a.term.Interactive() {
			return "", fmt.Errorf("account %s is locked; set %s_EVM_PASSWORD", address.Hex(), envPrefix)
		}
		return a.term.ReadPassword(fmt.Sprintf("Password for %s: ", address.Hex()))
	})
}

// openSolanaKey loads the Solana keypair, or returns nil when the file does
// not exist yet.
func openSolanaKey(cfg *Config) (solana.PrivateKey, error) {
	if _, err := os.Stat(cfg.Solana.Keypair); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return devwallet.LoadSolanaKey(cfg.Solana.Keypair)
}

var approvalTitles = map[devwallet.ApprovalKind]string{
	devwallet.ApproveConnect:         "Connection request",
	devwallet.ApproveSendTransaction: "Send transaction",
	devwallet.ApproveSignTransaction: "Sign transaction",
	devwallet.ApproveSignMessage:     "Sign message",
	devwallet.ApproveAddChain:        "Add network",
}

// approver plays the wallet popup on the terminal.
func (a *app) approver(cfg *Config) devwallet.Approver {
	if cfg.AutoApprove {
		return devwallet.AutoApprove
	}
	return func(ctx context.Context, ap devwallet.Approval) error {
		if !a.term.Interactive() {
			return errors.New("no terminal to approve on; pass --yes")
		}
		title := approvalTitles[ap.Kind]
		if title == "" {
			title = string(ap.Kind)
		}
		ok, err := a.term.Confirm(fmt.Sprintf("%s · %s", strings.ToUpper(ap.Wallet), title), ap.Detail)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("rejected on terminal")
		}
		return ctx.Err()
	}
}
