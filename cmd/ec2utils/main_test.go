package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfnTypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/ec2utils/internal/config"
	apperrors "github.com/younsl/ec2utils/internal/errors"
	awsclient "github.com/younsl/ec2utils/pkg/aws"
	"github.com/younsl/ec2utils/pkg/aws/awstest"
	"github.com/younsl/ec2utils/pkg/instance"
	"github.com/younsl/ec2utils/pkg/platform"
	"github.com/younsl/ec2utils/pkg/retry"
)

const identityDocument = `{
  "accountId" : "123456789012",
  "availabilityZone" : "eu-west-1b",
  "instanceId" : "i-0123456789abcdef0",
  "instanceType" : "t3.micro",
  "privateIp" : "10.0.1.25",
  "region" : "eu-west-1"
}`

type harness struct {
	t          *testing.T
	configFile string
	env        map[string]string
	ec2        *awstest.EC2
	cfn        *awstest.CloudFormation
	s3         *awstest.S3
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/latest/dynamic/instance-identity/document", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(identityDocument))
	})
	mux.HandleFunc("/latest/user-data", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("#cloud-config"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	configFile := filepath.Join(dir, "ec2utils.yaml")
	yaml := fmt.Sprintf(`metadata:
  endpoint: %s
  wait_timeout: 5s
http:
  retries: 1
cache:
  dir: %s
  fallback_dir: %s
`, srv.URL, filepath.Join(dir, "tmp"), filepath.Join(dir, ".ndt"))
	require.NoError(t, os.WriteFile(configFile, []byte(yaml), 0o600))

	tags := map[string]string{
		"Name":                          "web-1",
		"aws:cloudformation:stack-name": "prod-stack",
		"aws:cloudformation:logical-id": "WebServer",
	}
	h := &harness{
		t:          t,
		configFile: configFile,
		env:        map[string]string{},
		ec2: &awstest.EC2{
			DescribeTagsFunc: func(*ec2.DescribeTagsInput) (*ec2.DescribeTagsOutput, error) {
				out := &ec2.DescribeTagsOutput{}
				for k, v := range tags {
					out.Tags = append(out.Tags, ec2Types.TagDescription{Key: aws.String(k), Value: aws.String(v)})
				}
				return out, nil
			},
		},
		cfn: &awstest.CloudFormation{
			DescribeStacksFunc: func(*cloudformation.DescribeStacksInput) (*cloudformation.DescribeStacksOutput, error) {
				return &cloudformation.DescribeStacksOutput{
					Stacks: []cfnTypes.Stack{{StackName: aws.String("prod-stack"), StackStatus: cfnTypes.StackStatusCreateComplete}},
				}, nil
			},
		},
		s3: &awstest.S3{},
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	var stdout, stderr bytes.Buffer
	a := newApp()
	a.stdout = &stdout
	a.stderr = &stderr
	a.newSession = func(cfg *config.Config) *instance.Session {
		return instance.NewSession(cfg,
			instance.WithProvider(awsclient.NewStaticProvider(awsclient.APIs{EC2: h.ec2, CloudFormation: h.cfn, S3: h.s3})),
			instance.WithDetector(platform.DetectorFunc(func() bool { return true })),
			instance.WithEnv(
				func(k string) string { return h.env[k] },
				func(k, v string) error { h.env[k] = v; return nil },
			),
		)
	}

	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--config", h.configFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestInfoField(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		field string
		want  string
	}{
		{"instance-id", "i-0123456789abcdef0\n"},
		{"region", "eu-west-1\n"},
		{"availability-zone", "eu-west-1b\n"},
		{"private-ip", "10.0.1.25\n"},
		{"stack-name", "prod-stack\n"},
		{"logical-id", "WebServer\n"},
		{"tag:Name", "web-1\n"},
		{"tag:missing", ""},
		{"stack-data:missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			out, err := h.run("info", tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	// The first run built and cached the snapshot, the rest read the cache
	assert.Equal(t, 1, h.ec2.Count("DescribeTags"))
}

func TestInfoUnknownField(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("info", "colour")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestDescribeLoadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.ErrorType
	}{
		{"not ec2", instance.ErrNotEC2, apperrors.ErrorTypeMetadata},
		{"unreachable", instance.ErrMetadataUnreachable, apperrors.ErrorTypeMetadata},
		{"retries exhausted", &retry.ExhaustedError{Name: "DescribeTags", Attempts: 20, Err: errors.New("no route to host")}, apperrors.ErrorTypeAWS},
		{"other", errors.New("boom"), apperrors.ErrorTypeAWS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := describeLoadError(tt.err)
			assert.True(t, apperrors.IsType(err, tt.want))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Contains(t, describeLoadError(&retry.ExhaustedError{Name: "DescribeTags", Attempts: 20, Err: errors.New("x")}).Error(), "retries exhausted")
}

func TestInfoJSON(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("info", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"instanceId": "i-0123456789abcdef0"`)
	assert.Contains(t, out, `"stack_name": "prod-stack"`)
}

func TestInfoTable(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("info")
	require.NoError(t, err)
	assert.Contains(t, out, "i-0123456789abcdef0")
	assert.Contains(t, out, "web-1")
}

func TestUserData(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("userdata", "-")
	require.NoError(t, err)
	assert.Equal(t, "#cloud-config\n", out)
}

func TestSignalStatus(t *testing.T) {
	h := newHarness(t)
	var got *cloudformation.SignalResourceInput
	h.cfn.SignalResourceFunc = func(in *cloudformation.SignalResourceInput) (*cloudformation.SignalResourceOutput, error) {
		got = in
		return &cloudformation.SignalResourceOutput{}, nil
	}

	_, err := h.run("signal-status", "SUCCESS")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "WebServer", aws.ToString(got.LogicalResourceId))

	_, err = h.run("signal-status", "MAYBE")
	assert.Error(t, err)
}

func TestClearCache(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("info", "instance-id")
	require.NoError(t, err)
	out, err := h.run("clear-cache")
	require.NoError(t, err)
	assert.Equal(t, "Instance data for i-0123456789abcdef0 rebuilt\n", out)
	assert.Equal(t, 2, h.ec2.Count("DescribeTags"))
}

func TestRegion(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("region")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1\n", out)
	assert.Equal(t, "eu-west-1", h.env[instance.RegionEnv])
}

func prunableVersions(now time.Time) func(*s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error) {
	return func(*s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error) {
		old := now.Add(-time.Hour)
		return &s3.ListObjectVersionsOutput{
			Versions: []s3Types.ObjectVersion{
				{Key: aws.String("db"), VersionId: aws.String("v2"), LastModified: &now, IsLatest: aws.Bool(true), Size: aws.Int64(10)},
				{Key: aws.String("db"), VersionId: aws.String("v1"), LastModified: &old, Size: aws.Int64(10)},
			},
		}, nil
	}
}

var keepLatestOnly = []string{"--ten-minutely", "0", "--hourly", "0", "--daily", "0", "--weekly", "0", "--monthly", "0", "--yearly", "0"}

func TestPruneDryRun(t *testing.T) {
	h := newHarness(t)
	h.s3.ListObjectVersionsFunc = prunableVersions(time.Now())

	out, err := h.run(append([]string{"prune-s3-versions", "backups", "--no-spinner", "--dry-run"}, keepLatestOnly...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: would delete 1 of 2 versions in s3://backups/")
	assert.Zero(t, h.s3.Count("DeleteObjects"))
}

func TestPruneWithProgress(t *testing.T) {
	h := newHarness(t)
	h.s3.ListObjectVersionsFunc = prunableVersions(time.Now())

	out, err := h.run(append([]string{"prune-s3-versions", "backups"}, keepLatestOnly...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 of 2 versions in s3://backups/")
	assert.Equal(t, 1, h.s3.Count("DeleteObjects"))
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "ec2utils version ")
}
