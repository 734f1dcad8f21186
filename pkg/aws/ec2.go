package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/younsl/ec2utils/internal/models"
	"github.com/younsl/ec2utils/pkg/utils"
)

// EC2API is the part of the EC2 API used here
type EC2API interface {
	DescribeTags(ctx context.Context, params *ec2.DescribeTagsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2Client struct for EC2 client
type EC2Client struct {
	client EC2API
	region string
}

// NewEC2ClientFromAPI creates an EC2Client around an existing API implementation
func NewEC2ClientFromAPI(api EC2API, region string) *EC2Client {
	return &EC2Client{
		client: api,
		region: region,
	}
}

// InstanceTags returns all tags of the instance as a map
func (c *EC2Client) InstanceTags(ctx context.Context, instanceID string) (map[string]string, error) {
	input := &ec2.DescribeTagsInput{
		Filters: []types.Filter{
			{
				Name:   aws.String("resource-id"),
				Values: []string{instanceID},
			},
		},
	}

	tags := make(map[string]string)
	paginator := ec2.NewDescribeTagsPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error describing tags of %s: %w", instanceID, err)
		}
		for k, v := range utils.GetTagDescriptionsMap(page.Tags) {
			tags[k] = v
		}
	}

	return tags, nil
}

// DescribeInstance returns network placement details of one instance
func (c *EC2Client) DescribeInstance(ctx context.Context, instanceID string) (*models.InstanceDetails, error) {
	result, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, fmt.Errorf("error describing instance %s: %w", instanceID, err)
	}

	for _, reservation := range result.Reservations {
		for _, instance := range reservation.Instances {
			if aws.ToString(instance.InstanceId) != instanceID {
				continue
			}

			details := &models.InstanceDetails{
				SubnetID: aws.ToString(instance.SubnetId),
				VpcID:    aws.ToString(instance.VpcId),
			}
			for _, eni := range instance.NetworkInterfaces {
				iface := models.NetworkInterface{
					ID:         aws.ToString(eni.NetworkInterfaceId),
					PrivateIP:  aws.ToString(eni.PrivateIpAddress),
					SubnetID:   aws.ToString(eni.SubnetId),
					MACAddress: aws.ToString(eni.MacAddress),
				}
				if eni.Attachment != nil {
					iface.DeviceIndex = aws.ToInt32(eni.Attachment.DeviceIndex)
				}
				details.NetworkInterfaces = append(details.NetworkInterfaces, iface)
			}
			models.SortNetworkInterfaces(details.NetworkInterfaces)

			return details, nil
		}
	}

	return nil, fmt.Errorf("instance %s not found in region %s", instanceID, c.region)
}
