package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"github.com/yolodolo42/walletconnector/internal/activity"
	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/connector"
	"github.com/yolodolo42/walletconnector/internal/evmrpc"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

// Lamports per SOL, as decimals.
const solanaDecimals = 9

func newSendCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send native currency through the connected wallet",
		Long: `Send ETH (or the network's native currency) or SOL from the connected
wallet. The wallet asks for approval, signs and submits the transaction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			amount, _ := cmd.Flags().GetString("amount")
			data, _ := cmd.Flags().GetString("data")

			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			s, err := r.session(cmd.Context())
			if err != nil {
				return err
			}

			var req connector.TxRequest
			switch s.Family {
			case wallet.FamilyEVM:
				req, err = evmTransfer(r.networks, s, to, amount, data)
			case wallet.FamilySolana:
				if data != "" {
					return errors.New("--data is only supported for EVM wallets")
				}
				req, err = solanaTransfer(cmd.Context(), rpc.New(r.cfg.Solana.RPCURL), s, to, amount)
			default:
				err = connector.ErrUnsupportedChainFamily
			}
			if err != nil {
				return err
			}

			id, err := s.SendTransaction(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted: %s\n", id)
			r.record(cmd.Context(), activity.Entry{
				WalletKey: s.WalletKey,
				Family:    s.Family,
				ChainID:   s.ChainID,
				Account:   s.Address,
				TxID:      id,
				To:        to,
				Amount:    amount,
			})
			return nil
		},
	}
	cmd.Flags().String("to", "", "recipient address (0x address or base58 public key)")
	cmd.Flags().String("amount", "", "amount in whole units, e.g. 0.01")
	cmd.Flags().String("data", "", "calldata as 0x hex (EVM only)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func evmTransfer(networks *chain.Registry, s connector.Session, to, amount, data string) (connector.TxRequest, error) {
	if !common.IsHexAddress(to) {
		return connector.TxRequest{}, fmt.Errorf("invalid recipient %q", to)
	}
	net, ok := networks.Find(s.ChainID)
	if !ok {
		return connector.TxRequest{}, fmt.Errorf("%w: %d", connector.ErrUnknownNetwork, s.ChainID)
	}
	value, err := chain.ParseAmount(amount, net.CurrencyDecimals)
	if err != nil {
		return connector.TxRequest{}, err
	}

	recipient := common.HexToAddress(to)
	args := &evmrpc.TransactionArgs{
		To:    &recipient,
		Value: (*hexutil.Big)(value),
	}
	if data != "" {
		calldata, err := hexutil.Decode(data)
		if err != nil {
			return connector.TxRequest{}, fmt.Errorf("invalid --data: %w", err)
		}
		args.Data = (*hexutil.Bytes)(&calldata)
	}
	return connector.TxRequest{EVM: args}, nil
}

// blockhashSource is the part of *rpc.Client a transfer needs besides sending.
type blockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
}

func solanaTransfer(ctx context.Context, client blockhashSource, s connector.Session, to, amount string) (connector.TxRequest, error) {
	from, err := solana.PublicKeyFromBase58(s.Address)
	if err != nil {
		return connector.TxRequest{}, fmt.Errorf("invalid session address: %w", err)
	}
	recipient, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return connector.TxRequest{}, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	lamports, err := chain.ParseAmount(amount, solanaDecimals)
	if err != nil {
		return connector.TxRequest{}, err
	}
	if !lamports.IsUint64() {
		return connector.TxRequest{}, fmt.Errorf("%w %q: too large", chain.ErrInvalidAmount, amount)
	}

	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return connector.TxRequest{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports.Uint64(), from, recipient).Build()},
		recent.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return connector.TxRequest{}, err
	}
	return connector.TxRequest{Solana: &connector.SolanaTxRequest{
		Transaction: tx,
		Transport:   client,
		Opts:        rpc.TransactionOpts{PreflightCommitment: rpc.CommitmentFinalized},
	}}, nil
}
