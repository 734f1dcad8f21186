package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// APIs bundles the service APIs a Provider hands out. Tests fill it with fakes.
type APIs struct {
	EC2            EC2API
	CloudFormation CloudFormationAPI
	STS            STSAPI
	S3             S3API
}

// Provider loads AWS configuration once per region and creates service clients from it
type Provider struct {
	profile string

	mu      sync.Mutex
	configs map[string]aws.Config

	loadConfig func(ctx context.Context, region string) (aws.Config, error)
	apis       func(cfg aws.Config) APIs
}

// NewProvider creates a Provider using the default credential chain and,
// when set, the named shared config profile
func NewProvider(profile string) *Provider {
	p := &Provider{
		profile: profile,
		configs: make(map[string]aws.Config),
		apis: func(cfg aws.Config) APIs {
			return APIs{
				EC2:            ec2.NewFromConfig(cfg),
				CloudFormation: cloudformation.NewFromConfig(cfg),
				STS:            sts.NewFromConfig(cfg),
				S3:             s3.NewFromConfig(cfg, func(o *s3.Options) {
					o.UsePathStyle = true
				}),
			}
		},
	}
	p.loadConfig = p.loadDefaultConfig
	return p
}

// NewStaticProvider returns a Provider that hands out the given APIs for
// every region without loading any configuration
func NewStaticProvider(apis APIs) *Provider {
	return &Provider{
		configs: make(map[string]aws.Config),
		loadConfig: func(_ context.Context, region string) (aws.Config, error) {
			return aws.Config{Region: region}, nil
		},
		apis: func(aws.Config) APIs { return apis },
	}
}

func (p *Provider) loadDefaultConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithEC2IMDSClientEnableState(imds.ClientEnabled),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if p.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(p.profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config: %w", err)
	}
	return cfg, nil
}

// Config returns the configuration for region. An empty region resolves
// from the environment and shared config files.
func (p *Provider) Config(ctx context.Context, region string) (aws.Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg, ok := p.configs[region]; ok {
		return cfg, nil
	}
	cfg, err := p.loadConfig(ctx, region)
	if err != nil {
		return aws.Config{}, err
	}
	p.configs[region] = cfg
	return cfg, nil
}

// ConfiguredRegion returns the region set in the environment or shared
// config, or an empty string
func (p *Provider) ConfiguredRegion(ctx context.Context) string {
	cfg, err := p.Config(ctx, "")
	if err != nil {
		return ""
	}
	return cfg.Region
}

// EC2 returns an EC2Client for region
func (p *Provider) EC2(ctx context.Context, region string) (*EC2Client, error) {
	cfg, err := p.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewEC2ClientFromAPI(p.apis(cfg).EC2, cfg.Region), nil
}

// CloudFormation returns a CloudFormationClient for region
func (p *Provider) CloudFormation(ctx context.Context, region string) (*CloudFormationClient, error) {
	cfg, err := p.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewCloudFormationClientFromAPI(p.apis(cfg).CloudFormation, cfg.Region), nil
}

// STS returns an STSClient for region
func (p *Provider) STS(ctx context.Context, region string) (*STSClient, error) {
	cfg, err := p.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSTSClientFromAPI(p.apis(cfg).STS), nil
}

// S3 returns an S3Client for region
func (p *Provider) S3(ctx context.Context, region string) (*S3Client, error) {
	cfg, err := p.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewS3ClientFromAPI(p.apis(cfg).S3, cfg.Region), nil
}

// Reset drops every cached configuration
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs = make(map[string]aws.Config)
}
