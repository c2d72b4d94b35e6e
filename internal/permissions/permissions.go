// Package permissions holds the permission vocabulary shared by organization
// provisioning and the membership engine.
package permissions

// Project-level roles applied through permission templates.
const (
	Admin         = "admin"
	IssueAdmin    = "issueadmin"
	User          = "user"
	CodeViewer    = "codeviewer"
	ScanExecution = "scan"
)

// Organization-wide permissions not tied to a single project.
const (
	QualityProfileAdmin = "profileadmin"
	QualityGateAdmin    = "gateadmin"
	Provisioning        = "provisioning"
)

// AnyoneGroupID addresses the implicit group every user belongs to.
// It is never materialised as a Group row.
const AnyoneGroupID = ""

// Global returns every organization-wide permission, in the order they are
// granted to the Owners group and to personal-organization owners.
func Global() []string {
	return []string{Admin, QualityProfileAdmin, QualityGateAdmin, ScanExecution, Provisioning}
}

// DefaultTemplateGroupGrants lists the template permissions granted to a
// fixed target when a new organization is provisioned: the Owners group for
// team organizations, the project-creator characteristic for personal ones.
func DefaultTemplateGroupGrants() []string {
	return []string{Admin, IssueAdmin, ScanExecution}
}

// DefaultTemplateAnyoneGrants lists the template permissions granted to the
// implicit Anyone group for every new organization.
func DefaultTemplateAnyoneGrants() []string {
	return []string{User, CodeViewer}
}

// IsGlobal reports whether the permission is organization-wide.
func IsGlobal(permission string) bool {
	for _, p := range Global() {
		if p == permission {
			return true
		}
	}
	return false
}
