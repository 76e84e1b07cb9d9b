//go:build !unix

package raven

func fillPlatformInfo(*DeviceInfo) {}
