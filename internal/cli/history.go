package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/walletconnector/internal/activity"
	"github.com/yolodolo42/walletconnector/internal/chain"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transactions sent from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			account, _ := cmd.Flags().GetString("account")

			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			networks, err := chain.NewDefaultRegistry(cfg.Networks...)
			if err != nil {
				return fmt.Errorf("invalid networks config: %w", err)
			}
			store, err := activity.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), account, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions yet.")
				return nil
			}

			t := newTable("TIME", "WALLET", "NETWORK", "TO", "AMOUNT", "TRANSACTION")
			for _, e := range entries {
				t.Row(
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					e.WalletKey,
					networkLabel(networks, e),
					e.To,
					e.Amount,
					e.TxID,
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of transactions to show")
	cmd.Flags().String("account", "", "only show transactions sent from this address")
	return cmd
}

func networkLabel(networks *chain.Registry, e activity.Entry) string {
	if e.Family == wallet.FamilySolana {
		return "Solana"
	}
	if net, ok := networks.Find(e.ChainID); ok {
		return net.Name
	}
	return strconv.FormatUint(e.ChainID, 10)
}
