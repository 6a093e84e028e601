package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/walletconnector/internal/connector"
	"github.com/yolodolo42/walletconnector/internal/devwallet"
	"github.com/yolodolo42/walletconnector/internal/provider"
	"github.com/yolodolo42/walletconnector/internal/ui"
	"github.com/yolodolo42/walletconnector/internal/wallet"
)

func newConnectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect [WALLET]",
		Short: "Connect to a wallet",
		Long: `Connect to one of the installed wallets. Without WALLET an interactive
selector is shown. With --trusted a Solana wallet connects only if it
already approved this app, without prompting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trusted, _ := cmd.Flags().GetBool("trusted")

			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			var key string
			if len(args) == 1 {
				key = strings.ToUpper(args[0])
			} else {
				if key, err = a.pickWallet(r.wallets); err != nil {
					return err
				}
			}

			var opts []connector.ConnectOption
			if trusted {
				opts = append(opts, connector.WithTrusted())
			}
			s, err := r.manager.Connect(cmd.Context(), key, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.ApprovedStyle.Render(ui.SymbolCheck+" Connected"))
			printSession(cmd.OutOrStdout(), r, s)
			return nil
		},
	}
	cmd.Flags().Bool("trusted", false, "only connect if the wallet already trusts this app")
	return cmd
}

// pickWallet shows every supported wallet; the ones not installed cannot be chosen.
func (a *app) pickWallet(wallets *wallet.Registry) (string, error) {
	if !a.term.Interactive() {
		return "", errors.New("wallet key required when not running in a terminal")
	}
	var items []ui.SelectorItem
	for _, d := range wallets.List() {
		desc := string(d.Family)
		if !d.IsInstalled() {
			desc += " · not installed"
		}
		items = append(items, ui.SelectorItem{
			ID:          d.Key,
			Label:       d.DisplayName,
			Description: desc,
			Disabled:    !d.IsInstalled(),
		})
	}
	key, err := a.term.Select("Connect a wallet", items)
	if errors.Is(err, ui.ErrCancelled) {
		return "", errors.New("no wallet selected")
	}
	return key, err
}

func printSession(w io.Writer, r *runtime, s connector.Session) {
	fmt.Fprintf(w, "Wallet:  %s\n", s.WalletKey)
	fmt.Fprintf(w, "Family:  %s\n", ui.Family(string(s.Family)))
	fmt.Fprintf(w, "Address: %s\n", s.Address)
	if s.Family != wallet.FamilyEVM {
		return
	}
	name := "unknown network"
	if n, ok := r.networks.Find(s.ChainID); ok {
		name = n.Name
	}
	fmt.Fprintf(w, "Network: %s (%d)\n", name, s.ChainID)
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the wallet this app is connected to",
		Long:  `Reattach to a wallet that already approved this app, without prompting.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			s, err := r.session(cmd.Context())
			if errors.Is(err, errNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not connected.")
				return nil
			}
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), r, s)
			return nil
		},
	}
}

func newDisconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect and forget the wallet's approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			s, err := r.session(cmd.Context())
			if errors.Is(err, errNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not connected.")
				return nil
			}
			if err != nil {
				return err
			}
			if err := r.manager.Disconnect(cmd.Context()); err != nil {
				return err
			}
			// EIP-1193 has no disconnect request; the wallet revokes the permission itself.
			if evm, ok := s.RawProvider.(*devwallet.EVM); ok {
				if err := evm.Revoke(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disconnected from %s.\n", s.WalletKey)
			return nil
		},
	}
}

func newSwitchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "switch CHAIN_ID",
		Short: "Switch the connected EVM wallet to another network",
		Long: `Switch the connected EVM wallet to CHAIN_ID (decimal or 0x hex). A network
the wallet does not know yet is added first from the networks config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := provider.ParseChainID(args[0])
			if err != nil {
				return err
			}

			r, err := a.newRuntime()
			if err != nil {
				return err
			}
			defer r.Close()

			if _, err := r.session(cmd.Context()); err != nil {
				return err
			}
			if err := r.manager.SwitchNetwork(cmd.Context(), chainID); err != nil {
				return err
			}

			s, ok := r.manager.Session()
			if !ok {
				return errors.New("wallet disconnected during the switch")
			}
			printSession(cmd.OutOrStdout(), r, s)
			return nil
		},
	}
}
