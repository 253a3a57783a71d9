package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"assura/internal/encryption"
	insured "assura/internal/insured/models"
)

const rotationWarning = "Rotating the key makes existing ciphertext unreadable; keep the old pair until data is re-encrypted."

type keyMaterial struct {
	Key string `json:"key"`
	IV  string `json:"iv"`
}

func newKeygenCmd(opts *options) *cobra.Command {
	var yamlOut bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate ENCRYPTION_KEY and ENCRYPTION_IV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, iv, err := encryption.GenerateKeyMaterial()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			defer fmt.Fprintln(cmd.ErrOrStderr(), rotationWarning)

			switch {
			case opts.jsonOutput:
				return writeJSON(out, keyMaterial{Key: key, IV: iv})
			case yamlOut:
				_, err = fmt.Fprintf(out, "encryption:\n  key: %q\n  iv: %q\n", key, iv)
			default:
				_, err = fmt.Fprintf(out, "ENCRYPTION_KEY=%s\nENCRYPTION_IV=%s\n", key, iv)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&yamlOut, "yaml", false, "print a config file fragment instead of env assignments")
	return cmd
}

type hashOutput struct {
	Field string `json:"field"`
	Hash  string `json:"hash"`
}

// newHashCmd prints the value a *_hash column holds for a plaintext, so
// support staff can locate a person row without decrypting the table.
func newHashCmd(opts *options) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "hash <value>",
		Short: "Compute the search hash of a person field value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := insured.PersonSchema.SearchHash(field, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), hashOutput{Field: field, Hash: h})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
			return err
		},
	}
	cmd.Flags().StringVar(&field, "field", insured.FieldNationalID, "person field the value belongs to")
	return cmd
}
