package utils

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTagDescriptionsMap(t *testing.T) {
	tags := GetTagDescriptionsMap([]types.TagDescription{
		{Key: aws.String("Name"), Value: aws.String("web-1")},
		{Key: aws.String("empty")},
		{Value: aws.String("no key")},
	})

	assert.Equal(t, map[string]string{"Name": "web-1", "empty": ""}, tags)
	assert.Equal(t, "web-1", GetName(tags))
	assert.Equal(t, []string{"Name", "empty"}, SortedKeys(tags))
}

func TestFormatStackTime(t *testing.T) {
	assert.Empty(t, FormatStackTime(nil))

	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("CET", 3600))
	formatted := FormatStackTime(&ts)
	assert.Equal(t, "Tue, 05 Mar 2024 13:07:09 +0000", formatted)

	parsed, err := ParseStackTime(formatted)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestFormatValue(t *testing.T) {
	s, err := FormatValue("i-0123")
	require.NoError(t, err)
	assert.Equal(t, "i-0123", s)

	s, err = FormatValue(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"b\"\n}", s)

	s, err = FormatValue(nil)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestIsRegionName(t *testing.T) {
	for _, r := range []string{"eu-west-1", "us-gov-west-1", "ap-southeast-4", "cn-north-1"} {
		assert.True(t, IsRegionName(r), r)
	}
	for _, r := range []string{"", "eu-west", "EU-WEST-1", "eu-west-1a"} {
		assert.False(t, IsRegionName(r), r)
	}
	assert.Equal(t, "EU (Ireland)", GetRegionDescriptiveName("eu-west-1"))
	assert.Empty(t, GetRegionDescriptiveName("xx-nowhere-9"))
}
