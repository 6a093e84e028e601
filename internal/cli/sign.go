package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	solana "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/yolodolo42/walletconnector/internal/wallet"
)

func newSignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign MESSAGE",
		Short: "Sign a message with the connected wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			s, err := r.session(cmd.Context())
			if err != nil {
				return err
			}
			sig, err := s.SignMessage(cmd.Context(), []byte(args[0]))
			if err != nil {
				return err
			}

			if s.Family == wallet.FamilySolana && len(sig) == solana.SignatureLength {
				fmt.Fprintf(cmd.OutOrStdout(), "Signature: %s\n", solana.SignatureFromBytes(sig))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signature: %s\n", hexutil.Encode(sig))
			return nil
		},
	}
}
