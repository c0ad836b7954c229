package scan

import (
	"errors"
	"time"

	"github.com/temirov/licenses-everywhere/internal/licenses"
)

const (
	defaultPacingDelayConstant         = time.Second
	missingOrganizationMessageConstant = "organization is required"
	unsupportedLicenseMessageConstant  = "configured license is not in the catalog"
	missingLicenseFileNameMessage      = "license filename must not be blank"
)

// Configuration carries every tunable of a remediation run. File keys load
// through mapstructure tags; command line flags override loaded values.
type Configuration struct {
	Organization     string        `mapstructure:"default_organization"`
	LicenseID        string        `mapstructure:"default_license"`
	CopyrightHolder  string        `mapstructure:"copyright_holder"`
	LicenseFileName  string        `mapstructure:"license_filename"`
	CommitMessage    string        `mapstructure:"commit_message"`
	PullRequestTitle string        `mapstructure:"pr_title"`
	PullRequestBody  string        `mapstructure:"pr_body"`
	UseSSH           bool          `mapstructure:"use_ssh"`
	TempDirectory    string        `mapstructure:"temp_dir"`
	DryRun           bool          `mapstructure:"dry_run"`
	AllowSkip        bool          `mapstructure:"allow_skip"`
	Repositories     []string      `mapstructure:"repositories"`
	AuthProvider     string        `mapstructure:"auth_provider"`
	AuthItem         string        `mapstructure:"auth_item"`
	PacingDelay      time.Duration `mapstructure:"pacing_delay"`
}

// DefaultConfiguration returns the values used before any file or flag
// applies. LicenseID stays blank so the per-repository prompt only
// disappears once a license is chosen in the file or on the command line.
func DefaultConfiguration() Configuration {
	return Configuration{
		LicenseFileName: licenses.DefaultFileName,
		UseSSH:          true,
		PacingDelay:     defaultPacingDelayConstant,
	}
}

// Validate rejects configurations that cannot drive a run.
func (configuration Configuration) Validate() error {
	if len(configuration.Organization) == 0 {
		return errors.New(missingOrganizationMessageConstant)
	}
	if len(configuration.LicenseID) > 0 && !licenses.IsSupported(configuration.LicenseID) {
		return errors.New(unsupportedLicenseMessageConstant)
	}
	if len(configuration.LicenseFileName) == 0 {
		return errors.New(missingLicenseFileNameMessage)
	}
	return nil
}
