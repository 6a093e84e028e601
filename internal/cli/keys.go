package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/walletconnector/internal/devwallet"
)

const minPasswordLen = 8

func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the keys behind the local wallets",
		Long: `Create and import the EVM keystore account and the Solana keypair the
local wallets sign with.`,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new EVM keystore account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			ks, err := devwallet.OpenKeystore(cfg.DataDir)
			if err != nil {
				return err
			}
			password, err := a.newPassword(cfg, "Enter password for new account: ")
			if err != nil {
				return err
			}
			account, err := ks.Create(password)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Account created.")
			fmt.Fprintf(out, "Address:  %s\n", account.Address.Hex())
			fmt.Fprintf(out, "Keystore: %s\n", account.URL.Path)
			fmt.Fprintln(out, "Back up your keystore file and remember your password!")
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import an EVM private key into the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, _ := cmd.Flags().GetString("key")

			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			if privateKey == "" {
				if !a.term.Interactive() {
					return errors.New("private key is required: pass --key")
				}
				if privateKey, err = a.term.ReadLine("Private key (hex):", true); err != nil {
					return err
				}
			}
			if privateKey == "" {
				return errors.New("private key is required")
			}

			ks, err := devwallet.OpenKeystore(cfg.DataDir)
			if err != nil {
				return err
			}
			password, err := a.newPassword(cfg, "Enter password to encrypt the key: ")
			if err != nil {
				return err
			}
			account, err := ks.Import(privateKey, password)
			if err != nil {
				return fmt.Errorf("failed to import key: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Key imported.")
			fmt.Fprintf(cmd.OutOrStdout(), "Address:  %s\n", account.Address.Hex())
			return nil
		},
	}
	importCmd.Flags().String("key", "", "private key to import (hex, with or without 0x prefix)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List keystore accounts and the Solana keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			ks, err := devwallet.OpenKeystore(cfg.DataDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			accounts := ks.Accounts()
			if len(accounts) == 0 {
				fmt.Fprintln(out, "No EVM accounts. Use 'walletconnector keys create' to create one.")
			}
			for i, acc := range accounts {
				fmt.Fprintf(out, "%d. %s\n", i+1, acc.Address.Hex())
			}

			key, err := openSolanaKey(cfg)
			if err != nil {
				return err
			}
			if key == nil {
				fmt.Fprintln(out, "No Solana keypair. Use 'walletconnector keys solana-new' to create one.")
				return nil
			}
			fmt.Fprintf(out, "Solana: %s\n", key.PublicKey())
			return nil
		},
	}

	solanaNewCmd := &cobra.Command{
		Use:   "solana-new",
		Short: "Generate the Solana keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v)
			if err != nil {
				return err
			}
			pub, err := devwallet.NewSolanaKeyFile(cfg.Solana.Keypair)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Solana keypair written to %s\n", cfg.Solana.Keypair)
			fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\n", pub)
			return nil
		},
	}

	cmd.AddCommand(createCmd, importCmd, listCmd, solanaNewCmd)
	return cmd
}

// newPassword asks for a password twice. A configured evm.password is used
// as is, so scripts can create keys.
func (a *app) newPassword(cfg *Config, prompt string) (string, error) {
	if cfg.EVM.Password != "" {
		return checkPassword(cfg.EVM.Password)
	}
	if !a.term.Interactive() {
		return "", fmt.Errorf("no terminal to read a password from; set %s_EVM_PASSWORD", envPrefix)
	}

	password, err := a.term.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if _, err := checkPassword(password); err != nil {
		return "", err
	}
	confirm, err := a.term.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func checkPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return password, nil
}
