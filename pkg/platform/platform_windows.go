//go:build windows

package platform

import (
	"golang.org/x/sys/windows/registry"
)

// Default returns a detector reading the BIOS manufacturer and the
// registered owner from the registry
func Default() Detector {
	return NewVendorDetector(
		registryString(`HARDWARE\DESCRIPTION\System\BIOS`, "SystemManufacturer"),
		registryString(`SOFTWARE\Microsoft\Windows NT\CurrentVersion`, "RegisteredOwner"),
	)
}

func registryString(path, name string) VendorLookup {
	return func() (string, error) {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
		if err != nil {
			return "", err
		}
		defer key.Close()

		value, _, err := key.GetStringValue(name)
		return value, err
	}
}
