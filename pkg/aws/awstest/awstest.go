// Package awstest provides in-memory implementations of the service APIs
// used by pkg/aws, for tests.
package awstest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// APIError returns a service error response with the given code
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

// Calls counts invocations per operation name
type Calls struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *Calls) record(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[op]++
}

// Count returns how many times op was called
func (c *Calls) Count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[op]
}

// Total returns the number of calls across all operations
func (c *Calls) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}

// EC2 fakes the EC2 API
type EC2 struct {
	Calls
	DescribeTagsFunc      func(*ec2.DescribeTagsInput) (*ec2.DescribeTagsOutput, error)
	DescribeInstancesFunc func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
}

func (f *EC2) DescribeTags(_ context.Context, in *ec2.DescribeTagsInput, _ ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error) {
	f.record("DescribeTags")
	if f.DescribeTagsFunc == nil {
		return &ec2.DescribeTagsOutput{}, nil
	}
	return f.DescribeTagsFunc(in)
}

func (f *EC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.record("DescribeInstances")
	if f.DescribeInstancesFunc == nil {
		return &ec2.DescribeInstancesOutput{}, nil
	}
	return f.DescribeInstancesFunc(in)
}

// CloudFormation fakes the CloudFormation API
type CloudFormation struct {
	Calls
	DescribeStacksFunc         func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackResourcesFunc func(*cloudformation.DescribeStackResourcesInput) (*cloudformation.DescribeStackResourcesOutput, error)
	SignalResourceFunc         func(*cloudformation.SignalResourceInput) (*cloudformation.SignalResourceOutput, error)
}

func (f *CloudFormation) DescribeStacks(_ context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	f.record("DescribeStacks")
	if f.DescribeStacksFunc == nil {
		return &cloudformation.DescribeStacksOutput{}, nil
	}
	return f.DescribeStacksFunc(in)
}

func (f *CloudFormation) DescribeStackResources(_ context.Context, in *cloudformation.DescribeStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error) {
	f.record("DescribeStackResources")
	if f.DescribeStackResourcesFunc == nil {
		return &cloudformation.DescribeStackResourcesOutput{}, nil
	}
	return f.DescribeStackResourcesFunc(in)
}

func (f *CloudFormation) SignalResource(_ context.Context, in *cloudformation.SignalResourceInput, _ ...func(*cloudformation.Options)) (*cloudformation.SignalResourceOutput, error) {
	f.record("SignalResource")
	if f.SignalResourceFunc == nil {
		return &cloudformation.SignalResourceOutput{}, nil
	}
	return f.SignalResourceFunc(in)
}

// STS fakes the STS API
type STS struct {
	Calls
	GetCallerIdentityFunc func(*sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error)
}

func (f *STS) GetCallerIdentity(_ context.Context, in *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.record("GetCallerIdentity")
	if f.GetCallerIdentityFunc == nil {
		return &sts.GetCallerIdentityOutput{}, nil
	}
	return f.GetCallerIdentityFunc(in)
}

// S3 fakes the S3 API
type S3 struct {
	Calls
	ListObjectVersionsFunc func(*s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error)
	DeleteObjectsFunc      func(*s3.DeleteObjectsInput) (*s3.DeleteObjectsOutput, error)
}

func (f *S3) ListObjectVersions(_ context.Context, in *s3.ListObjectVersionsInput, _ ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	f.record("ListObjectVersions")
	if f.ListObjectVersionsFunc == nil {
		return &s3.ListObjectVersionsOutput{}, nil
	}
	return f.ListObjectVersionsFunc(in)
}

func (f *S3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.record("DeleteObjects")
	if f.DeleteObjectsFunc == nil {
		return &s3.DeleteObjectsOutput{}, nil
	}
	return f.DeleteObjectsFunc(in)
}
