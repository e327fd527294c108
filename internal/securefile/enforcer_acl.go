//go:build windows

package securefile

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"

	"github.com/kije/typst-mcp/internal/fileutil"
)

var platform Enforcer = aclEnforcer{}

// aclEnforcer marks the file read-only and hidden, then replaces its DACL
// with one that grants the current user read access and denies deletion to
// everyone.
//
// Windows has no descriptor-level immutability primitive. Between Close and
// the DACL call the file is guarded only by its creation DACL and the
// read-only attribute set during hardening. The file owner also keeps
// implicit WRITE_DAC, and a principal with FILE_DELETE_CHILD on the parent
// can still delete it.
type aclEnforcer struct{}

func (aclEnforcer) Name() string { return "acl" }

func (aclEnforcer) Apply(f *os.File, path string) (*Seal, error) {
	s := &Seal{Path: path, Mechanism: "permissions only"}
	if err := f.Close(); err != nil {
		return s, fmt.Errorf("close %s: %w", path, err)
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := windows.SetFileAttributes(p, windows.FILE_ATTRIBUTE_READONLY|windows.FILE_ATTRIBUTE_HIDDEN); err != nil {
		return s, fmt.Errorf("%w: set attributes: %v", ErrUnavailable, err)
	}
	if err := applyReadOnlyDACL(path); err != nil {
		s.Mechanism = "read-only attribute"
		return s, fmt.Errorf("%w: apply DACL: %v", ErrUnavailable, err)
	}
	s.Immutable = true
	s.Mechanism = "read-only attribute + DACL (read, deny delete)"
	return s, nil
}

func (aclEnforcer) Release(s *Seal) error {
	// Full control for the owner first; the deny-delete ACE would block removal.
	if err := fileutil.RestrictToOwner(s.Path); err != nil {
		return fmt.Errorf("restore DACL on %s: %w", s.Path, err)
	}
	s.Immutable = false
	p, err := windows.UTF16PtrFromString(s.Path)
	if err != nil {
		return err
	}
	if err := windows.SetFileAttributes(p, windows.FILE_ATTRIBUTE_NORMAL); err != nil {
		return fmt.Errorf("reset attributes on %s: %w", s.Path, err)
	}
	return removeFile(s.Path)
}

// applyReadOnlyDACL sets a protected DACL: Everyone is denied DELETE and the
// current user is granted GENERIC_READ. Inherited ACEs are dropped.
func applyReadOnlyDACL(path string) error {
	user, err := fileutil.CurrentUserSID()
	if err != nil {
		return fmt.Errorf("current user SID: %w", err)
	}
	everyone, err := windows.CreateWellKnownSid(windows.WinWorldSid)
	if err != nil {
		return fmt.Errorf("everyone SID: %w", err)
	}

	entries := []windows.EXPLICIT_ACCESS{
		{
			AccessPermissions: windows.DELETE,
			AccessMode:        windows.DENY_ACCESS,
			Inheritance:       windows.NO_INHERITANCE,
			Trustee: windows.TRUSTEE{
				TrusteeForm:  windows.TRUSTEE_IS_SID,
				TrusteeType:  windows.TRUSTEE_IS_WELL_KNOWN_GROUP,
				TrusteeValue: windows.TrusteeValueFromSID(everyone),
			},
		},
		{
			AccessPermissions: windows.GENERIC_READ,
			AccessMode:        windows.SET_ACCESS,
			Inheritance:       windows.NO_INHERITANCE,
			Trustee: windows.TRUSTEE{
				TrusteeForm:  windows.TRUSTEE_IS_SID,
				TrusteeType:  windows.TRUSTEE_IS_USER,
				TrusteeValue: windows.TrusteeValueFromSID(user),
			},
		},
	}
	acl, err := windows.ACLFromEntries(entries, nil)
	if err != nil {
		return fmt.Errorf("build ACL: %w", err)
	}
	return windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil,
		nil,
		acl,
		nil,
	)
}
