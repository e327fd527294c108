// Package fileutil creates files and directories that only the current user
// can access.
//
// On Unix the mode bits (0600, 0700) do the job. On Windows the mode bits
// are ignored by the kernel, so a protected DACL granting the current user
// full control replaces whatever the parent would have passed down.
package fileutil
