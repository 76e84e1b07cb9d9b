package raven

import (
	"runtime"
	"testing"
)

func TestCaptureDeviceInfo_PopulatesFields(t *testing.T) {
	info := CaptureDeviceInfo()

	if info.DeviceName == "" {
		t.Error("DeviceName is empty")
	}
	if info.DeviceBrand != runtime.GOOS {
		t.Errorf("DeviceBrand = %q, want %q", info.DeviceBrand, runtime.GOOS)
	}
	if info.OSVersion == "" {
		t.Error("OSVersion is empty")
	}
	if info.OSVersionName == "" {
		t.Error("OSVersionName is empty")
	}
	// Device may be empty when the hostname cannot be read.
}

func TestDeviceInfo_Tags_HasAllKeys(t *testing.T) {
	tags := DeviceInfo{
		Device:        "build-01",
		DeviceName:    "x86_64",
		DeviceBrand:   "linux",
		OSVersion:     "6.1.0",
		OSVersionName: "Linux",
	}.Tags()

	want := map[string]string{
		"device":          "build-01",
		"device_name":     "x86_64",
		"device_brand":    "linux",
		"os_version":      "6.1.0",
		"os_version_name": "Linux",
	}
	if len(tags) != len(want) {
		t.Fatalf("Tags() has %d keys, want %d", len(tags), len(want))
	}
	for k, v := range want {
		if tags[k] != v {
			t.Errorf("tags[%q] = %q, want %q", k, tags[k], v)
		}
	}
}

func TestCurrentDevice_Stable(t *testing.T) {
	if CurrentDevice() != CurrentDevice() {
		t.Error("CurrentDevice should return the same facts on every call")
	}
}
