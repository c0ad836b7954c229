package licenses

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	licensesCommandUseConstant   = "licenses"
	licensesCommandShortConstant = "List available license types"
	licensesCommandLongConstant  = "licenses prints every license identifier the remediation workflow can render, with a short description."
	licenseRowTemplateConstant   = "%s: %s\n"
)

// CommandBuilder assembles the licenses cobra command.
type CommandBuilder struct{}

// Build constructs the licenses command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   licensesCommandUseConstant,
		Short: licensesCommandShortConstant,
		Long:  licensesCommandLongConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	for _, licenseID := range AvailableLicenseIDs() {
		definition, lookupError := Lookup(licenseID)
		if lookupError != nil {
			return lookupError
		}
		fmt.Fprintf(command.OutOrStdout(), licenseRowTemplateConstant, definition.ID, definition.Description)
	}
	return nil
}
