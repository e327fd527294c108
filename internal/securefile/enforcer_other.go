//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package securefile

import "runtime"

var platform Enforcer = Unsupported("no immutability primitive on " + runtime.GOOS)
