// Package instance builds, caches and serves the description of the EC2
// instance the process runs on.
package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/logger"
	"github.com/younsl/ec2utils/internal/models"
	awsclient "github.com/younsl/ec2utils/pkg/aws"
	"github.com/younsl/ec2utils/pkg/metadata"
	"github.com/younsl/ec2utils/pkg/netprobe"
	"github.com/younsl/ec2utils/pkg/platform"
	"github.com/younsl/ec2utils/pkg/retry"
)

var (
	// ErrNotEC2 is returned when the host is not an EC2 instance
	ErrNotEC2 = errors.New("not running on an EC2 instance")
	// ErrMetadataUnreachable is returned when the metadata service did not
	// accept connections within the wait timeout
	ErrMetadataUnreachable = errors.New("failed to connect to instance identity service")
)

// Policies holds the retry budgets of the AWS calls made during a build
type Policies struct {
	Tags           retry.Policy
	Stack          retry.Policy
	StackResources retry.Policy
}

// DefaultPolicies retries only connection errors: tags 20 times, the stack
// description 10 times and stack resources 5 times with a growing delay.
func DefaultPolicies() Policies {
	return Policies{
		Tags: retry.Policy{
			Name:      "DescribeTags",
			Attempts:  20,
			Delay:     time.Second,
			Retryable: awsclient.IsConnectionError,
		},
		Stack: retry.Policy{
			Name:      "DescribeStacks",
			Attempts:  10,
			Delay:     time.Second,
			Retryable: awsclient.IsConnectionError,
		},
		StackResources: retry.Policy{
			Name:          "DescribeStackResources",
			Attempts:      5,
			Delay:         time.Second,
			BackoffFactor: 1.5,
			Retryable:     awsclient.IsConnectionError,
		},
	}
}

// SnapshotBuilder produces a fresh snapshot from live sources
type SnapshotBuilder interface {
	Build(ctx context.Context) (*models.InstanceSnapshot, error)
}

// Builder assembles a snapshot from the metadata service, EC2 and CloudFormation
type Builder struct {
	detector    platform.Detector
	metadata    metadata.Client
	provider    *awsclient.Provider
	endpoint    string
	waitTimeout time.Duration
	policies    Policies
}

// NewBuilder creates a Builder. endpoint is the metadata service URL that is
// probed before the identity document is read.
func NewBuilder(detector platform.Detector, md metadata.Client, provider *awsclient.Provider, endpoint string, waitTimeout time.Duration) *Builder {
	return &Builder{
		detector:    detector,
		metadata:    md,
		provider:    provider,
		endpoint:    endpoint,
		waitTimeout: waitTimeout,
		policies:    DefaultPolicies(),
	}
}

// WithPolicies replaces the retry budgets
func (b *Builder) WithPolicies(p Policies) *Builder {
	b.policies = p
	return b
}

// Build returns a complete snapshot or an error. A returned error always
// comes with a nil snapshot, never a partial one.
func (b *Builder) Build(ctx context.Context) (*models.InstanceSnapshot, error) {
	if !b.detector.IsEC2() {
		return nil, ErrNotEC2
	}

	host, port, err := metadata.HostPort(b.endpoint)
	if err != nil {
		return nil, err
	}
	ok, err := netprobe.WaitNetService(ctx, host, port, b.waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnreachable, err)
	}
	if !ok {
		return nil, ErrMetadataUnreachable
	}

	doc, err := b.metadata.IdentityDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading instance identity document: %w", err)
	}
	snapshot := &models.InstanceSnapshot{
		InstanceID:       doc.InstanceID,
		Region:           doc.Region,
		AvailabilityZone: doc.AvailabilityZone,
		PrivateIP:        doc.PrivateIP,
		AccountID:        doc.AccountID,
		InstanceType:     doc.InstanceType,
		ImageID:          doc.ImageID,
		Architecture:     doc.Architecture,
	}
	if !doc.PendingTime.IsZero() {
		pending := doc.PendingTime
		snapshot.PendingTime = &pending
	}

	b.describeInstance(ctx, snapshot)

	tags, err := b.instanceTags(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	snapshot.Tags = tags

	if stackName := tags[models.TagStackName]; stackName != "" {
		snapshot.StackName = stackName
		snapshot.StackID = tags[models.TagStackID]
		if err := b.resolveStack(ctx, snapshot); err != nil {
			return nil, err
		}
	}

	Finalize(snapshot)
	return snapshot, nil
}

// describeInstance adds network details. Failures leave the snapshot as is.
func (b *Builder) describeInstance(ctx context.Context, snapshot *models.InstanceSnapshot) {
	log := logger.GetLogger()

	client, err := b.provider.EC2(ctx, snapshot.Region)
	if err != nil {
		log.Debug("Skipping instance description", zap.Error(err))
		return
	}
	details, err := client.DescribeInstance(ctx, snapshot.InstanceID)
	if err != nil {
		log.Debug("Failed to describe instance", zap.String("instance_id", snapshot.InstanceID), zap.Error(err))
		return
	}

	snapshot.SubnetID = details.SubnetID
	snapshot.VpcID = details.VpcID
	snapshot.NetworkInterfaces = details.NetworkInterfaces
}

// instanceTags reads the instance tags. Service errors such as missing
// permissions yield an empty map.
func (b *Builder) instanceTags(ctx context.Context, snapshot *models.InstanceSnapshot) (map[string]string, error) {
	client, err := b.provider.EC2(ctx, snapshot.Region)
	if err != nil {
		return nil, err
	}

	var tags map[string]string
	err = b.policies.Tags.Call(ctx, func() error {
		var callErr error
		tags, callErr = client.InstanceTags(ctx, snapshot.InstanceID)
		return callErr
	})
	if err != nil {
		if awsclient.IsAccessDenied(err) {
			logger.GetLogger().Warn("Missing permission to read instance tags",
				zap.String("instance_id", snapshot.InstanceID),
				zap.String("code", awsclient.ErrorCode(err)))
			return map[string]string{}, nil
		}
		if awsclient.IsAPIError(err) {
			logger.GetLogger().Debug("Tags not available",
				zap.String("instance_id", snapshot.InstanceID),
				zap.String("code", awsclient.ErrorCode(err)))
			return map[string]string{}, nil
		}
		return nil, err
	}
	return tags, nil
}

// resolveStack reads the owning stack. Service errors such as a deleted
// stack leave the stack data empty.
func (b *Builder) resolveStack(ctx context.Context, snapshot *models.InstanceSnapshot) error {
	log := logger.GetLogger()

	client, err := b.provider.CloudFormation(ctx, snapshot.Region)
	if err != nil {
		return err
	}

	var stack *models.StackDescription
	err = b.policies.Stack.Call(ctx, func() error {
		var callErr error
		stack, callErr = client.DescribeStack(ctx, snapshot.StackName)
		return callErr
	})
	switch {
	case err == nil:
	case awsclient.IsStackNotFound(err):
		log.Debug("Stack does not exist", zap.String("stack", snapshot.StackName))
		return nil
	case awsclient.IsAPIError(err):
		log.Debug("Stack not available",
			zap.String("stack", snapshot.StackName),
			zap.String("code", awsclient.ErrorCode(err)))
		return nil
	default:
		return err
	}

	var resources []models.StackResource
	err = b.policies.StackResources.Call(ctx, func() error {
		var callErr error
		resources, callErr = client.StackResources(ctx, snapshot.StackName)
		return callErr
	})
	if err != nil {
		if !awsclient.IsAPIError(err) {
			return err
		}
		log.Debug("Stack resources not available",
			zap.String("stack", snapshot.StackName),
			zap.String("code", awsclient.ErrorCode(err)))
	}
	stack.Resources = resources

	snapshot.FullStackData = stack
	snapshot.StackData = models.FlattenStackData(stack)
	return nil
}

// Finalize derives the convenience fields of a snapshot. Stack name, stack
// id and logical id always come from the tags when the tags carry them.
func Finalize(snapshot *models.InstanceSnapshot) {
	if snapshot == nil {
		return
	}
	if snapshot.FullStackData != nil && snapshot.FullStackData.StackStatus != "" {
		snapshot.InitialStatus = snapshot.FullStackData.StackStatus
	}
	if v, ok := snapshot.Tags[models.TagStackName]; ok {
		snapshot.StackName = v
	}
	if v, ok := snapshot.Tags[models.TagStackID]; ok {
		snapshot.StackID = v
	}
	if v, ok := snapshot.Tags[models.TagLogicalID]; ok {
		snapshot.LogicalID = v
	}
	models.SortNetworkInterfaces(snapshot.NetworkInterfaces)
}
