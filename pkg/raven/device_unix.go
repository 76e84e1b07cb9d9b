//go:build unix

package raven

import "golang.org/x/sys/unix"

// fillPlatformInfo overrides the portable defaults with uname(2) values.
func fillPlatformInfo(info *DeviceInfo) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return
	}
	if machine := unix.ByteSliceToString(uts.Machine[:]); machine != "" {
		info.DeviceName = machine
	}
	if release := unix.ByteSliceToString(uts.Release[:]); release != "" {
		info.OSVersion = release
	}
	if sysname := unix.ByteSliceToString(uts.Sysname[:]); sysname != "" {
		info.OSVersionName = sysname
	}
}
