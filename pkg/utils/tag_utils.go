package utils

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// GetTagDescriptionsMap converts DescribeTags results to a map
func GetTagDescriptionsMap(tags []types.TagDescription) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil {
			result[*tag.Key] = aws.ToString(tag.Value)
		}
	}
	return result
}

// GetTagValue returns the value of a tag, or an empty string
func GetTagValue(tags map[string]string, key string) string {
	return tags[key]
}

// GetName returns the value of the Name tag
func GetName(tags map[string]string) string {
	return GetTagValue(tags, "Name")
}

// SortedKeys returns the keys of a string map in order
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
