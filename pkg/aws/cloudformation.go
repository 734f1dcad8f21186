package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/younsl/ec2utils/internal/models"
	"github.com/younsl/ec2utils/pkg/utils"
)

// CloudFormationAPI is the part of the CloudFormation API used here
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackResources(ctx context.Context, params *cloudformation.DescribeStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error)
	SignalResource(ctx context.Context, params *cloudformation.SignalResourceInput, optFns ...func(*cloudformation.Options)) (*cloudformation.SignalResourceOutput, error)
}

// CloudFormationClient struct for CloudFormation client
type CloudFormationClient struct {
	client CloudFormationAPI
	region string
}

// NewCloudFormationClientFromAPI creates a CloudFormationClient around an existing API implementation
func NewCloudFormationClientFromAPI(api CloudFormationAPI, region string) *CloudFormationClient {
	return &CloudFormationClient{
		client: api,
		region: region,
	}
}

// DescribeStack returns the stack description without its resources
func (c *CloudFormationClient) DescribeStack(ctx context.Context, stackName string) (*models.StackDescription, error) {
	result, err := c.client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("error describing stack %s: %w", stackName, err)
	}
	if len(result.Stacks) == 0 {
		return nil, fmt.Errorf("%w: %s in region %s", ErrStackNotFound, stackName, c.region)
	}

	stack := result.Stacks[0]
	desc := &models.StackDescription{
		StackName:         aws.ToString(stack.StackName),
		StackID:           aws.ToString(stack.StackId),
		StackStatus:       string(stack.StackStatus),
		StackStatusReason: aws.ToString(stack.StackStatusReason),
		Description:       aws.ToString(stack.Description),
		CreationTime:      utils.FormatStackTime(stack.CreationTime),
		LastUpdatedTime:   utils.FormatStackTime(stack.LastUpdatedTime),
		Parameters:        make(map[string]string),
		Outputs:           make(map[string]string),
		Tags:              make(map[string]string),
	}
	for _, p := range stack.Parameters {
		desc.Parameters[aws.ToString(p.ParameterKey)] = aws.ToString(p.ParameterValue)
	}
	for _, o := range stack.Outputs {
		desc.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	for _, t := range stack.Tags {
		desc.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}

	return desc, nil
}

// StackResources returns the resources of a stack
func (c *CloudFormationClient) StackResources(ctx context.Context, stackName string) ([]models.StackResource, error) {
	result, err := c.client.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("error describing resources of stack %s: %w", stackName, err)
	}

	resources := make([]models.StackResource, 0, len(result.StackResources))
	for _, r := range result.StackResources {
		resources = append(resources, models.StackResource{
			LogicalID:  aws.ToString(r.LogicalResourceId),
			PhysicalID: aws.ToString(r.PhysicalResourceId),
			Type:       aws.ToString(r.ResourceType),
			Status:     string(r.ResourceStatus),
		})
	}
	return resources, nil
}

// ParseSignalStatus validates a resource signal status, case-insensitively
func ParseSignalStatus(status string) (types.ResourceSignalStatus, error) {
	s := types.ResourceSignalStatus(strings.ToUpper(status))
	for _, valid := range s.Values() {
		if s == valid {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid signal status %q: must be SUCCESS or FAILURE", status)
}

// SignalResource sends a signal for a logical resource of a stack
func (c *CloudFormationClient) SignalResource(ctx context.Context, stackName, logicalID, uniqueID string, status types.ResourceSignalStatus) error {
	_, err := c.client.SignalResource(ctx, &cloudformation.SignalResourceInput{
		StackName:         aws.String(stackName),
		LogicalResourceId: aws.String(logicalID),
		UniqueId:          aws.String(uniqueID),
		Status:            status,
	})
	if err != nil {
		return fmt.Errorf("error signaling %s in stack %s: %w", logicalID, stackName, err)
	}
	return nil
}
