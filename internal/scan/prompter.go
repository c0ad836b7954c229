package scan

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/temirov/licenses-everywhere/internal/licenses"
)

const (
	licensePromptTemplateConstant         = "%s has no compliant license. License to apply [%s]: "
	licensePromptSkipTemplateConstant     = "%s has no compliant license. License to apply [%s] (or \"skip\"): "
	skipAnswerConstant                    = "skip"
	unsupportedLicenseAnswerTemplateConst = "unsupported license %q, choose one of: %s\n"
	licenseListSeparatorConstant          = ", "
)

// LicensePrompter chooses which license to apply to a repository.
type LicensePrompter interface {
	SelectLicense(repositoryFullName string, defaultLicenseID string, allowSkip bool) (string, bool, error)
}

// ConsolePrompter asks the operator interactively on the terminal.
type ConsolePrompter struct {
	input  *bufio.Reader
	output io.Writer
}

// NewConsolePrompter builds a ConsolePrompter over the given streams.
func NewConsolePrompter(input io.Reader, output io.Writer) *ConsolePrompter {
	return &ConsolePrompter{input: bufio.NewReader(input), output: output}
}

// SelectLicense prompts for the license to apply, defaulting on an empty
// answer. When skipping is allowed, answering "skip" declines the
// remediation. Unsupported answers re-prompt.
func (prompter *ConsolePrompter) SelectLicense(repositoryFullName string, defaultLicenseID string, allowSkip bool) (string, bool, error) {
	promptTemplate := licensePromptTemplateConstant
	if allowSkip {
		promptTemplate = licensePromptSkipTemplateConstant
	}

	for {
		if _, writeError := fmt.Fprintf(prompter.output, promptTemplate, repositoryFullName, defaultLicenseID); writeError != nil {
			return "", false, writeError
		}

		answerLine, readError := prompter.input.ReadString('\n')
		if readError != nil && len(strings.TrimSpace(answerLine)) == 0 {
			return "", false, readError
		}

		answer := strings.TrimSpace(answerLine)
		if len(answer) == 0 {
			return defaultLicenseID, false, nil
		}
		if allowSkip && strings.EqualFold(answer, skipAnswerConstant) {
			return "", true, nil
		}
		if canonicalID, supported := licenses.Normalize(answer); supported {
			return canonicalID, false, nil
		}

		if _, writeError := fmt.Fprintf(
			prompter.output,
			unsupportedLicenseAnswerTemplateConst,
			answer,
			strings.Join(licenses.AvailableLicenseIDs(), licenseListSeparatorConstant),
		); writeError != nil {
			return "", false, writeError
		}
	}
}
