package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/yolodolo42/walletconnector/internal/ui"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ui.ColorDim)).
		Headers(headers...)
}

func newWalletsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "List supported wallets and whether they are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			familyFlag, _ := cmd.Flags().GetString("family")
			installedOnly, _ := cmd.Flags().GetBool("installed")

			var families []wallet.ChainFamily
			if familyFlag != "" {
				f, err := wallet.ParseFamily(familyFlag)
				if err != nil {
					return err
				}
				families = append(families, f)
			}

			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			descs := r.wallets.List(families...)
			if installedOnly {
				descs = r.wallets.Installed(families...)
			}
			if len(descs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No wallets found.")
				return nil
			}

			t := newTable("KEY", "WALLET", "FAMILY", "INSTALLED")
			for _, d := range descs {
				t.Row(d.Key, d.DisplayName, ui.Family(string(d.Family)), ui.Mark(d.IsInstalled()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().String("family", "", "only show one chain family (evm or solana)")
	cmd.Flags().Bool("installed", false, "only show installed wallets")
	return cmd
}

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the EVM networks wallets can be switched to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			t := newTable("CHAIN ID", "HEX", "NAME", "CURRENCY", "RPC")
			for _, n := range r.networks.List() {
				name := n.Name
				if n.IsTestnet {
					name += " (testnet)"
				}
				t.Row(strconv.FormatUint(n.ChainID, 10), n.HexChainID, name, n.CurrencySymbol, n.RPCEndpoint)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}
