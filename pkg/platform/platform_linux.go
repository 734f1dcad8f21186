//go:build linux

package platform

import "os"

// Default returns the sysfs detector. HOST_SYS overrides the sysfs mount
// point for containerized runs.
func Default() Detector {
	root := "/sys"
	if sysPath := os.Getenv("HOST_SYS"); sysPath != "" {
		root = sysPath
	}
	return NewSysfsDetector(os.DirFS(root))
}
