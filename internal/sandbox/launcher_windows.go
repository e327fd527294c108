//go:build windows

package sandbox

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

// verifyLauncherBinary checks that the launcher, after resolving links, is a
// regular file owned by the current user, the Administrators group or
// SYSTEM.
func verifyLauncherBinary(path string) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	fi, err := os.Lstat(resolved)
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSymlink != 0 || !fi.Mode().IsRegular() {
		return errors.New("not a regular file")
	}
	if !fileOwnedByTrustedPrincipal(resolved) {
		return errors.New("not owned by the current user or an administrator")
	}
	return nil
}

// fileOwnedByTrustedPrincipal compares the file's owner SID against the
// current process token's user and the well-known admin principals.
func fileOwnedByTrustedPrincipal(path string) bool {
	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.OWNER_SECURITY_INFORMATION,
	)
	if err != nil {
		return false
	}
	ownerSID, _, err := sd.Owner()
	if err != nil || ownerSID == nil {
		return false
	}

	token, err := windows.OpenCurrentProcessToken()
	if err != nil {
		return false
	}
	defer token.Close()
	tokenUser, err := token.GetTokenUser()
	if err != nil {
		return false
	}
	if windows.EqualSid(ownerSID, tokenUser.User.Sid) {
		return true
	}

	for _, t := range []windows.WELL_KNOWN_SID_TYPE{windows.WinBuiltinAdministratorsSid, windows.WinLocalSystemSid} {
		sid, err := windows.CreateWellKnownSid(t)
		if err == nil && windows.EqualSid(ownerSID, sid) {
			return true
		}
	}
	return false
}
