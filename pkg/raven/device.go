// device.go captures the host facts attached to every tag set.

package raven

import (
	"os"
	"runtime"
	"sync"
)

// Tag keys always present in an event's tags once any tag is set.
const (
	TagDevice        = "device"
	TagDeviceName    = "device_name"
	TagDeviceBrand   = "device_brand"
	TagOSVersion     = "os_version"
	TagOSVersionName = "os_version_name"
)

// DeviceInfo identifies the machine and OS the process runs on.
type DeviceInfo struct {
	// Device is the host name.
	Device string

	// DeviceName is the hardware identifier (uname machine, or GOARCH).
	DeviceName string

	// DeviceBrand is the operating system family (GOOS).
	DeviceBrand string

	// OSVersion is the kernel release.
	OSVersion string

	// OSVersionName is the operating system name.
	OSVersionName string
}

// Tags returns the device facts keyed by their tag names.
func (d DeviceInfo) Tags() map[string]string {
	return map[string]string{
		TagDevice:        d.Device,
		TagDeviceName:    d.DeviceName,
		TagDeviceBrand:   d.DeviceBrand,
		TagOSVersion:     d.OSVersion,
		TagOSVersionName: d.OSVersionName,
	}
}

var currentDevice = sync.OnceValue(CaptureDeviceInfo)

// CurrentDevice returns the device facts of this process, captured once.
func CurrentDevice() DeviceInfo {
	return currentDevice()
}

// CaptureDeviceInfo reads the device facts from the running system.
func CaptureDeviceInfo() DeviceInfo {
	hostname, _ := os.Hostname() // empty hostname is acceptable

	info := DeviceInfo{
		Device:        hostname,
		DeviceName:    runtime.GOARCH,
		DeviceBrand:   runtime.GOOS,
		OSVersion:     runtime.Version(),
		OSVersionName: runtime.GOOS,
	}
	fillPlatformInfo(&info)
	return info
}
