//go:build windows

package securefile

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"

	"github.com/kije/typst-mcp/internal/fileutil"
)

// ValidateDirectory checks that dir is a real directory (not a reparse
// point) whose owner SID is the current process user.
func ValidateDirectory(dir string) error {
	fi, err := os.Lstat(dir)
	if err != nil {
		return newError(ErrInsecureDirectory, dir, err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return newError(ErrInsecureDirectory, dir, errors.New("directory is a reparse point"))
	}
	if !fi.IsDir() {
		return newError(ErrInsecureDirectory, dir, errors.New("not a directory"))
	}
	owned, err := ownedByCurrentUser(dir)
	if err != nil {
		return newError(ErrInsecureDirectory, dir, err)
	}
	if !owned {
		return newError(ErrInsecureDirectory, dir, errors.New("not owned by the current user"))
	}
	return nil
}

// ownedByCurrentUser compares the owner SID of path with the process token user.
func ownedByCurrentUser(path string) (bool, error) {
	sd, err := windows.GetNamedSecurityInfo(path, windows.SE_FILE_OBJECT, windows.OWNER_SECURITY_INFORMATION)
	if err != nil {
		return false, err
	}
	owner, _, err := sd.Owner()
	if err != nil || owner == nil {
		return false, errors.New("cannot determine directory owner")
	}
	user, err := fileutil.CurrentUserSID()
	if err != nil {
		return false, err
	}
	return windows.EqualSid(owner, user), nil
}
