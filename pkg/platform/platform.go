// Package platform detects whether the current host is an EC2 instance
package platform

import (
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/logger"
)

// Detector reports whether the host runs on EC2
type Detector interface {
	IsEC2() bool
}

// DetectorFunc adapts a plain function to Detector
type DetectorFunc func() bool

// IsEC2 calls f
func (f DetectorFunc) IsEC2() bool {
	return f()
}

// Never is a Detector for platforms without an EC2 probe
var Never Detector = DetectorFunc(func() bool { return false })

type matchKind int

const (
	hasPrefix matchKind = iota
	hasPrefixFold
	contains
)

// sysfsProbe is one file check, relative to the sysfs root
type sysfsProbe struct {
	path  string
	match matchKind
	want  string
}

// sysfsProbes are evaluated in order, the first match wins
var sysfsProbes = []sysfsProbe{
	{path: "hypervisor/uuid", match: hasPrefixFold, want: "ec2"},
	{path: "class/dmi/id/product_uuid", match: hasPrefixFold, want: "ec2"},
	{path: "devices/virtual/dmi/id/board_vendor", match: hasPrefix, want: "Amazon EC2"},
	{path: "devices/virtual/dmi/id/sys_vendor", match: hasPrefix, want: "Amazon EC2"},
	{path: "devices/virtual/dmi/id/bios_vendor", match: hasPrefix, want: "Amazon EC2"},
	{path: "devices/virtual/dmi/id/chassis_vendor", match: hasPrefix, want: "Amazon EC2"},
	{path: "devices/virtual/dmi/id/chassis_asset_tag", match: hasPrefix, want: "Amazon EC2"},
	{path: "devices/virtual/dmi/id/modalias", match: contains, want: "AmazonEC2"},
	{path: "devices/virtual/dmi/id/uevent", match: contains, want: "AmazonEC2"},
}

// SysfsDetector probes DMI and hypervisor attributes exposed under /sys
type SysfsDetector struct {
	fsys fs.FS
}

// NewSysfsDetector creates a detector reading from fsys, which must be rooted
// at the sysfs mount point
func NewSysfsDetector(fsys fs.FS) *SysfsDetector {
	return &SysfsDetector{fsys: fsys}
}

// IsEC2 returns true on the first matching probe
func (d *SysfsDetector) IsEC2() bool {
	for _, p := range sysfsProbes {
		content := readIfReadable(d.fsys, p.path)
		if content == "" {
			continue
		}
		if p.matches(content) {
			logger.GetLogger().Debug("EC2 platform detected", zap.String("probe", p.path))
			return true
		}
	}
	return false
}

func (p sysfsProbe) matches(content string) bool {
	switch p.match {
	case hasPrefixFold:
		return len(content) >= len(p.want) && strings.EqualFold(content[:len(p.want)], p.want)
	case contains:
		return strings.Contains(content, p.want)
	default:
		return strings.HasPrefix(content, p.want)
	}
}

// readIfReadable returns the file content or an empty string on any error
func readIfReadable(fsys fs.FS, name string) string {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return ""
	}
	return string(data)
}

// VendorLookup returns one vendor identity string of the host
type VendorLookup func() (string, error)

// VendorDetector matches vendor identity strings, such as the ones Windows
// keeps in the registry
type VendorDetector struct {
	manufacturer VendorLookup
	owner        VendorLookup
}

// NewVendorDetector creates a detector from a system manufacturer lookup
// and a registered owner lookup. Either may be nil.
func NewVendorDetector(manufacturer, owner VendorLookup) *VendorDetector {
	return &VendorDetector{manufacturer: manufacturer, owner: owner}
}

// IsEC2 reports a match on either the manufacturer or the owner
func (d *VendorDetector) IsEC2() bool {
	if v := lookup(d.manufacturer); strings.HasPrefix(v, "Amazon EC2") {
		return true
	}
	return lookup(d.owner) == "EC2"
}

func lookup(f VendorLookup) string {
	if f == nil {
		return ""
	}
	v, err := f()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
