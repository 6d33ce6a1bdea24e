package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goMarble/internal/crypto"
)

// keyInfo is printed by the keys commands.
type keyInfo struct {
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage transaction signing keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new secp256k1 signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKeyPair()
		if err != nil {
			return err
		}
		return printKey(cmd, key, true)
	},
}

var keysAddressCmd = &cobra.Command{
	Use:   "address <private-key-hex>",
	Short: "Show the address and public key of a private key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.KeyPairFromHex(args[0])
		if err != nil {
			return err
		}
		return printKey(cmd, key, false)
	},
}

func printKey(cmd *cobra.Command, key *crypto.KeyPair, withPrivate bool) error {
	info := keyInfo{
		Address:   key.Address().String(),
		PublicKey: key.PublicKeyHex(),
	}
	if withPrivate {
		info.PrivateKey = key.PrivateKeyHex()
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd, keysAddressCmd)
	rootCmd.AddCommand(keysCmd)
}
