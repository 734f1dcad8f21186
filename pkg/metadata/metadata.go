// Package metadata reads the instance identity document and user data from
// the EC2 instance metadata service.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/younsl/ec2utils/pkg/transport"
)

// DefaultEndpoint is the link-local address of the metadata service
const DefaultEndpoint = "http://169.254.169.254"

const (
	identityDocumentPath = "/latest/dynamic/instance-identity/document"
	userDataPath         = "/latest/user-data"
)

// Client reads instance metadata
type Client interface {
	IdentityDocument(ctx context.Context) (*imds.InstanceIdentityDocument, error)
	UserData(ctx context.Context) (string, error)
}

// HTTPClient reads metadata with plain GET requests through the retrying transport
type HTTPClient struct {
	endpoint  string
	transport *transport.Client
}

// NewHTTPClient creates an HTTPClient for endpoint
func NewHTTPClient(endpoint string, t *transport.Client) *HTTPClient {
	return &HTTPClient{
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		transport: t,
	}
}

// IdentityDocument fetches and parses the instance identity document
func (c *HTTPClient) IdentityDocument(ctx context.Context) (*imds.InstanceIdentityDocument, error) {
	body, err := c.get(ctx, identityDocumentPath)
	if err != nil {
		return nil, err
	}

	var doc imds.InstanceIdentityDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("error parsing instance identity document: %w", err)
	}
	return &doc, nil
}

// UserData fetches the raw user data
func (c *HTTPClient) UserData(ctx context.Context) (string, error) {
	return c.get(ctx, userDataPath)
}

func (c *HTTPClient) get(ctx context.Context, path string) (string, error) {
	resp, err := c.transport.Get(ctx, c.endpoint+path)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error fetching %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}

// IMDSClient reads metadata through the SDK client, which uses IMDSv2 session tokens
type IMDSClient struct {
	client *imds.Client
}

// NewIMDSClient creates an IMDSClient for endpoint
func NewIMDSClient(endpoint string) *IMDSClient {
	return &IMDSClient{
		client: imds.New(imds.Options{
			Endpoint:          endpoint,
			ClientEnableState: imds.ClientEnabled,
		}),
	}
}

// IdentityDocument fetches the instance identity document
func (c *IMDSClient) IdentityDocument(ctx context.Context) (*imds.InstanceIdentityDocument, error) {
	out, err := c.client.GetInstanceIdentityDocument(ctx, &imds.GetInstanceIdentityDocumentInput{})
	if err != nil {
		return nil, fmt.Errorf("error fetching instance identity document: %w", err)
	}
	return &out.InstanceIdentityDocument, nil
}

// UserData fetches the raw user data
func (c *IMDSClient) UserData(ctx context.Context) (string, error) {
	out, err := c.client.GetUserData(ctx, &imds.GetUserDataInput{})
	if err != nil {
		return "", fmt.Errorf("error fetching user data: %w", err)
	}
	defer out.Content.Close()

	data, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("error reading user data: %w", err)
	}
	return string(data), nil
}

// HostPort splits a metadata endpoint URL into the host and TCP port to probe
func HostPort(endpoint string) (string, int, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("invalid metadata endpoint %q: %w", endpoint, err)
	}
	if u.Hostname() == "" {
		return "", 0, fmt.Errorf("invalid metadata endpoint %q: missing host", endpoint)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return "", 0, fmt.Errorf("invalid metadata endpoint port %q: %w", port, err)
	}
	return u.Hostname(), n, nil
}

// WriteUserData writes user data to path, or to stdout when path is "-"
func WriteUserData(ctx context.Context, c Client, path string, stdout io.Writer) error {
	data, err := c.UserData(ctx)
	if err != nil {
		return err
	}

	if path == "-" {
		_, err := fmt.Fprintln(stdout, data)
		return err
	}
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		return fmt.Errorf("error writing user data to %s: %w", path, err)
	}
	return nil
}
