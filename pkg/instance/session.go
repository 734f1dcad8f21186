package instance

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/config"
	"github.com/younsl/ec2utils/internal/logger"
	awsclient "github.com/younsl/ec2utils/pkg/aws"
	"github.com/younsl/ec2utils/pkg/metadata"
	"github.com/younsl/ec2utils/pkg/platform"
	"github.com/younsl/ec2utils/pkg/transport"
)

// ErrNotInStack is returned by operations that need the owning stack
var ErrNotInStack = errors.New("instance is not part of a CloudFormation stack")

// Session holds everything one process needs to talk about its instance:
// configuration, AWS clients, the snapshot and the resolved account id.
type Session struct {
	cfg      *config.Config
	provider *awsclient.Provider
	detector platform.Detector
	metadata metadata.Client
	info     *Info

	mu        sync.Mutex
	accountID string
	getenv    func(string) string
	setenv    func(string, string) error
}

// Option customizes a Session
type Option func(*Session)

// WithProvider sets the AWS client provider
func WithProvider(p *awsclient.Provider) Option {
	return func(s *Session) { s.provider = p }
}

// WithDetector sets the platform detector
func WithDetector(d platform.Detector) Option {
	return func(s *Session) { s.detector = d }
}

// WithMetadataClient sets the metadata client
func WithMetadataClient(c metadata.Client) Option {
	return func(s *Session) { s.metadata = c }
}

// WithEnv replaces environment access
func WithEnv(getenv func(string) string, setenv func(string, string) error) Option {
	return func(s *Session) {
		s.getenv = getenv
		s.setenv = setenv
	}
}

// NewSession creates a Session from configuration
func NewSession(cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		getenv: os.Getenv,
		setenv: os.Setenv,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.provider == nil {
		s.provider = awsclient.NewProvider(cfg.AWS.Profile)
	}
	if s.detector == nil {
		s.detector = platform.Default()
	}
	if s.metadata == nil {
		s.metadata = NewMetadataClient(cfg)
	}

	builder := NewBuilder(s.detector, s.metadata, s.provider, cfg.Metadata.Endpoint, cfg.Metadata.WaitTimeout)
	s.info = NewInfo(NewCache(cfg.Cache), builder)
	s.info.setenv = s.setenv
	return s
}

// NewMetadataClient creates the metadata client selected by configuration
func NewMetadataClient(cfg *config.Config) metadata.Client {
	if cfg.Metadata.Client == config.MetadataClientIMDS {
		return metadata.NewIMDSClient(cfg.Metadata.Endpoint)
	}

	opts := transport.DefaultOptions()
	opts.Retries = cfg.HTTP.Retries
	opts.BackoffFactor = cfg.HTTP.BackoffFactor
	opts.Timeout = cfg.HTTP.Timeout
	opts.Logger = logger.GetLogger()
	return metadata.NewHTTPClient(cfg.Metadata.Endpoint, transport.New(opts))
}

// Provider returns the AWS client provider
func (s *Session) Provider() *awsclient.Provider {
	return s.provider
}

// Metadata returns the metadata client
func (s *Session) Metadata() metadata.Client {
	return s.metadata
}

// Info loads the snapshot if needed and returns the accessor facade. On
// error the returned Info serves empty values.
func (s *Session) Info(ctx context.Context) (*Info, error) {
	err := s.info.Load(ctx)
	return s.info, err
}

// ClearCache deletes the cache file and rebuilds the snapshot
func (s *Session) ClearCache(ctx context.Context) (*Info, error) {
	err := s.info.ClearCache(ctx)
	return s.info, err
}

// IsEC2 reports whether the host is an EC2 instance
func (s *Session) IsEC2() bool {
	return s.detector.IsEC2()
}

// Region resolves the region to use: the environment, then shared config,
// then the instance region on EC2, then the configured default.
func (s *Session) Region(ctx context.Context) string {
	for _, key := range []string{RegionEnv, "AWS_REGION"} {
		if v := s.getenv(key); v != "" {
			return v
		}
	}
	if region := s.provider.ConfiguredRegion(ctx); region != "" {
		return region
	}
	if s.detector.IsEC2() {
		info, err := s.Info(ctx)
		if err != nil {
			logger.GetLogger().Debug("Instance region not available", zap.Error(err))
		} else if region := info.Region(); region != "" {
			return region
		}
	}
	return s.cfg.AWS.DefaultRegion
}

// SetRegion exports the resolved region when none is set in the environment
func (s *Session) SetRegion(ctx context.Context) string {
	region := s.Region(ctx)
	if s.getenv(RegionEnv) == "" {
		_ = s.setenv(RegionEnv, region)
	}
	return region
}

// AccountID returns the account of the current credentials. The first
// successful lookup is kept for the session; failures return an empty string.
func (s *Session) AccountID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountID != "" {
		return s.accountID
	}

	client, err := s.provider.STS(ctx, s.Region(ctx))
	if err != nil {
		logger.GetLogger().Debug("Account id not resolved", zap.Error(err))
		return ""
	}
	id, err := client.AccountID(ctx)
	if err != nil {
		logger.GetLogger().Debug("Account id not resolved", zap.Error(err))
		return ""
	}
	s.accountID = id
	return id
}

// SignalStatus sends status for a logical resource of the owning stack.
// An empty resource signals the instance itself. The call is not retried.
func (s *Session) SignalStatus(ctx context.Context, status, resource string) error {
	signal, err := awsclient.ParseSignalStatus(status)
	if err != nil {
		return err
	}

	info, err := s.Info(ctx)
	if err != nil {
		return err
	}
	if info.StackName() == "" {
		return ErrNotInStack
	}
	if resource == "" {
		resource = info.LogicalID()
	}

	client, err := s.provider.CloudFormation(ctx, info.Region())
	if err != nil {
		return err
	}

	logger.GetLogger().Debug("Signaling resource",
		zap.String("stack", info.StackName()),
		zap.String("resource", resource),
		zap.String("status", string(signal)))
	return client.SignalResource(ctx, info.StackName(), resource, info.InstanceID(), signal)
}

// Reset forgets the account id, AWS configurations and the in-memory snapshot
func (s *Session) Reset() {
	s.mu.Lock()
	s.accountID = ""
	s.mu.Unlock()

	s.provider.Reset()
	s.info.Reset()
}
