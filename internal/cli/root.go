package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds what the commands share: configuration and the terminal.
type app struct {
	v       *viper.Viper
	cfgFile string
	term    terminal
}

// Execute runs the walletconnector CLI.
func Execute() error {
	return newRootCmd(&app{v: viper.New(), term: stdTerminal{}}).Execute()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "walletconnector",
		Short: "Connect to EVM and Solana wallets",
		Long: `walletconnector detects installed wallets, connects to one of them and
keeps the session in sync with account and network changes.

Wallets are injected by a local development environment (see the
environment.* config keys), backed by the keys under --data-dir.
Every request a dApp would show a wallet popup for is confirmed on the
terminal unless --yes is given.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range map[string]string{
				"data-dir":  "data_dir",
				"log-level": "log_level",
				"yes":       "auto_approve",
			} {
				if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return readConfig(a.v, a.cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.walletconnector/config.yaml)")
	flags.String("data-dir", defaultDataDir(), "directory holding keys and wallet authorizations")
	flags.String("log-level", "error", "log level (debug, info, warn, error)")
	flags.BoolP("yes", "y", false, "approve every wallet request without asking")

	rootCmd.AddCommand(
		newWalletsCmd(a),
		newNetworksCmd(a),
		newConnectCmd(a),
		newStatusCmd(a),
		newDisconnectCmd(a),
		newSwitchCmd(a),
		newSendCmd(a),
		newSignCmd(a),
		newHistoryCmd(a),
		newKeysCmd(a),
	)
	return rootCmd
}
