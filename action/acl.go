package action

import "github.com/riadafridishibly/parfind/scanner"

const (
	xattrAccessACL  = "system.posix_acl_access"
	xattrDefaultACL = "system.posix_acl_default"
)

// ACLChecker counts entries carrying POSIX access ACLs and directories
// carrying default ACLs. It runs on every discovered entry, before filtering.
type ACLChecker struct {
	Stats *scanner.Stats
	Log   Logger
}

// Inspect has the signature of scanner.Options.Inspect.
func (a *ACLChecker) Inspect(e *scanner.Entry) {
	log := orNop(a.Log)

	has, err := hasXattr(e.Path, xattrAccessACL)
	switch {
	case err != nil:
		log.Errorf("Failed to get Access ACL for entry: %s; Error: %v", e.Path, err)
	case has:
		a.Stats.AccessACLs.Add(1)
	}

	if !e.IsDir() {
		return
	}

	has, err = hasXattr(e.Path, xattrDefaultACL)
	switch {
	case err != nil:
		log.Errorf("Failed to get Default ACL for dir: %s; Error: %v", e.Path, err)
	case has:
		a.Stats.DefaultACLs.Add(1)
	}
}
