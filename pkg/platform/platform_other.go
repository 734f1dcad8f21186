//go:build !linux && !windows

package platform

// Default returns Never, there is no probe for this platform
func Default() Detector {
	return Never
}
