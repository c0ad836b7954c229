package licenses

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

const (
	unsupportedLicenseTemplateConstant = "unsupported license type: %s"
	renderFailureTemplateConstant      = "unable to render %s license: %w"
	copyrightMarkerConstant            = "copyright"

	// DefaultLicenseID is used when neither configuration nor flags pick a license.
	DefaultLicenseID = "MIT"
	// DefaultFileName is the license file written at the repository root.
	DefaultFileName = "LICENSE"
)

// templateContext carries the values substituted into license templates.
type templateContext struct {
	Year   int
	Holder string
}

// Definition describes one license supported by the catalog.
type Definition struct {
	ID          string
	Description string
	templateRaw string
}

var catalogDefinitions = map[string]Definition{
	"MIT": {
		ID:          "MIT",
		Description: "A short and simple permissive license with conditions only requiring preservation of copyright and license notices.",
		templateRaw: mitTemplateTextConstant,
	},
	"Apache-2.0": {
		ID:          "Apache-2.0",
		Description: "A permissive license that also provides an express grant of patent rights from contributors to users.",
		templateRaw: apacheTemplateTextConstant,
	},
	"GPL-3.0": {
		ID:          "GPL-3.0",
		Description: "A copyleft license that requires anyone who distributes your code or a derivative work to make the source available under the same terms.",
		templateRaw: gplThreeTemplateTextConstant,
	},
	"BSD-3-Clause": {
		ID:          "BSD-3-Clause",
		Description: "A permissive license similar to the MIT License, but with a non-endorsement clause.",
		templateRaw: bsdThreeClauseTemplateTextConstant,
	},
	"MPL-2.0": {
		ID:          "MPL-2.0",
		Description: "A copyleft license that is file-based rather than project-based, allowing for more license compatibility.",
		templateRaw: mplTwoTemplateTextConstant,
	},
	"LGPL-3.0": {
		ID:          "LGPL-3.0",
		Description: "A copyleft license that allows you to link to the licensed library without requiring your code to be licensed under the same terms.",
		templateRaw: lgplThreeTemplateTextConstant,
	},
	"AGPL-3.0": {
		ID:          "AGPL-3.0",
		Description: "A copyleft license similar to GPL but with an additional provision addressing use over a network.",
		templateRaw: agplThreeTemplateTextConstant,
	},
	"Unlicense": {
		ID:          "Unlicense",
		Description: "A license with no conditions whatsoever which dedicates works to the public domain.",
		templateRaw: unlicenseTemplateTextConstant,
	},
}

// AvailableLicenseIDs lists the supported license identifiers in sorted order.
func AvailableLicenseIDs() []string {
	identifiers := make([]string, 0, len(catalogDefinitions))
	for licenseID := range catalogDefinitions {
		identifiers = append(identifiers, licenseID)
	}
	sort.Strings(identifiers)
	return identifiers
}

// Lookup returns the definition for a license identifier.
func Lookup(licenseID string) (Definition, error) {
	definition, definitionExists := catalogDefinitions[licenseID]
	if !definitionExists {
		return Definition{}, fmt.Errorf(unsupportedLicenseTemplateConstant, licenseID)
	}
	return definition, nil
}

// IsSupported reports whether the catalog contains the license identifier.
func IsSupported(licenseID string) bool {
	_, definitionExists := catalogDefinitions[licenseID]
	return definitionExists
}

// Normalize resolves a license identifier case-insensitively to its
// canonical catalog form.
func Normalize(licenseID string) (string, bool) {
	trimmedID := strings.TrimSpace(licenseID)
	for canonicalID := range catalogDefinitions {
		if strings.EqualFold(canonicalID, trimmedID) {
			return canonicalID, true
		}
	}
	return "", false
}

// Render produces the license file content for the holder and year.
func Render(licenseID string, copyrightHolder string, year int) (string, error) {
	definition, lookupError := Lookup(licenseID)
	if lookupError != nil {
		return "", lookupError
	}

	parsedTemplate, parseError := template.New(definition.ID).Parse(definition.templateRaw)
	if parseError != nil {
		return "", fmt.Errorf(renderFailureTemplateConstant, licenseID, parseError)
	}

	renderedContent := &strings.Builder{}
	executeError := parsedTemplate.Execute(renderedContent, templateContext{Year: year, Holder: copyrightHolder})
	if executeError != nil {
		return "", fmt.Errorf(renderFailureTemplateConstant, licenseID, executeError)
	}

	return renderedContent.String(), nil
}

// Slug converts a license identifier into a branch-name-safe fragment.
func Slug(licenseID string) string {
	return strings.ToLower(strings.TrimSpace(licenseID))
}

// HolderMatches reports whether the license content's copyright line names the holder.
func HolderMatches(licenseContent string, copyrightHolder string) bool {
	trimmedHolder := strings.TrimSpace(copyrightHolder)
	if len(trimmedHolder) == 0 {
		return true
	}

	loweredHolder := strings.ToLower(trimmedHolder)
	for _, contentLine := range strings.Split(licenseContent, "\n") {
		loweredLine := strings.ToLower(contentLine)
		if !strings.Contains(loweredLine, copyrightMarkerConstant) {
			continue
		}
		if strings.Contains(loweredLine, loweredHolder) {
			return true
		}
	}
	return false
}

// HasCopyrightLine reports whether the content contains any copyright statement.
func HasCopyrightLine(licenseContent string) bool {
	return strings.Contains(strings.ToLower(licenseContent), copyrightMarkerConstant)
}
