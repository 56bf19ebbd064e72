package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veripass/veripass/pkg/vault"
)

// dataKeyGenerateCmd represents the data-key > generate command
var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `
Generate a data encryption key

Use this command to generate a new Base64-encoded 256 bit data encryption key.
Once generated, this key should be placed into the environment of the Veripass
server. It will be used to encrypt all biometric templates stored in the
database.

Example:

$ export VERIPASS_DATA_KEY="$(veripassctl data-key generate)"
`,
	Run: func(cmd *cobra.Command, args []string) {
		bytes, err := vault.GenerateMasterKey()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to generate key:", err)
			os.Exit(1)
		}
		fmt.Printf("%s", base64.StdEncoding.Strict().EncodeToString(bytes))
	},
}

func init() {
	dataKeyCmd.AddCommand(dataKeyGenerateCmd)
}
