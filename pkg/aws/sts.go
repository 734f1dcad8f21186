package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// STSAPI is the part of the STS API used here
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// STSClient struct for STS client
type STSClient struct {
	client STSAPI
}

// NewSTSClientFromAPI creates an STSClient around an existing API implementation
func NewSTSClientFromAPI(api STSAPI) *STSClient {
	return &STSClient{client: api}
}

// AccountID returns the account of the calling credentials
func (c *STSClient) AccountID(ctx context.Context) (string, error) {
	out, err := c.client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("error getting caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}
