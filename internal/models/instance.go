package models

import (
	"sort"
	"time"
)

// CloudFormation tags EC2 attaches to stack members
const (
	TagStackName = "aws:cloudformation:stack-name"
	TagStackID   = "aws:cloudformation:stack-id"
	TagLogicalID = "aws:cloudformation:logical-id"
)

// InstanceSnapshot is everything an instance knows about itself. The JSON
// layout is the on-disk cache format.
type InstanceSnapshot struct {
	// From the instance identity document
	InstanceID       string     `json:"instanceId,omitempty"`
	Region           string     `json:"region,omitempty"`
	AvailabilityZone string     `json:"availabilityZone,omitempty"`
	PrivateIP        string     `json:"privateIp,omitempty"`
	AccountID        string     `json:"accountId,omitempty"`
	InstanceType     string     `json:"instanceType,omitempty"`
	ImageID          string     `json:"imageId,omitempty"`
	Architecture     string     `json:"architecture,omitempty"`
	PendingTime      *time.Time `json:"pendingTime,omitempty"`

	// From DescribeInstances
	SubnetID          string             `json:"subnetId,omitempty"`
	VpcID             string             `json:"vpcId,omitempty"`
	NetworkInterfaces []NetworkInterface `json:"networkInterfaces,omitempty"`

	Tags map[string]string `json:"Tags,omitempty"`

	// Derived from tags and the owning stack
	StackName     string            `json:"stack_name,omitempty"`
	StackID       string            `json:"stack_id,omitempty"`
	LogicalID     string            `json:"logical_id,omitempty"`
	StackData     map[string]string `json:"StackData,omitempty"`
	FullStackData *StackDescription `json:"FullStackData,omitempty"`
	InitialStatus string            `json:"initial_status,omitempty"`
}

// NetworkInterface is one ENI attached to the instance
type NetworkInterface struct {
	ID          string `json:"networkInterfaceId"`
	DeviceIndex int32  `json:"deviceIndex"`
	PrivateIP   string `json:"privateIp,omitempty"`
	SubnetID    string `json:"subnetId,omitempty"`
	MACAddress  string `json:"macAddress,omitempty"`
}

// InstanceDetails is the subset of DescribeInstances the snapshot keeps
type InstanceDetails struct {
	SubnetID          string
	VpcID             string
	NetworkInterfaces []NetworkInterface
}

// IsEmpty reports whether the snapshot carries no instance identity
func (s *InstanceSnapshot) IsEmpty() bool {
	return s == nil || s.InstanceID == ""
}

// SortNetworkInterfaces orders interfaces by device index
func SortNetworkInterfaces(ifaces []NetworkInterface) {
	sort.SliceStable(ifaces, func(i, j int) bool {
		return ifaces[i].DeviceIndex < ifaces[j].DeviceIndex
	})
}
