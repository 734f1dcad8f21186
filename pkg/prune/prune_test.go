package prune

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/ec2utils/internal/models"
	awsclient "github.com/younsl/ec2utils/pkg/aws"
	"github.com/younsl/ec2utils/pkg/aws/awstest"
)

var base = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

// hourlyVersions returns n versions of key, one per hour going back from base
func hourlyVersions(key string, n int) []models.ObjectVersion {
	versions := make([]models.ObjectVersion, n)
	for i := range versions {
		versions[i] = models.ObjectVersion{
			Key:          key,
			VersionID:    fmt.Sprintf("%s-%03d", key, i),
			LastModified: base.Add(-time.Duration(i) * time.Hour),
			Size:         100,
			IsLatest:     i == 0,
		}
	}
	return versions
}

func ids(versions []models.ObjectVersion) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.VersionID)
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		versions   []models.ObjectVersion
		retention  Retention
		wantKeep   int
		wantRemove int
	}{
		{
			name:       "nothing retained keeps latest",
			versions:   hourlyVersions("a", 5),
			retention:  Retention{},
			wantKeep:   1,
			wantRemove: 4,
		},
		{
			name:       "hourly",
			versions:   hourlyVersions("a", 10),
			retention:  Retention{Hourly: 3},
			wantKeep:   3,
			wantRemove: 7,
		},
		{
			name:       "daily over two days",
			versions:   hourlyVersions("a", 48),
			retention:  Retention{Daily: 2},
			// Newest of 2024-06-30, newest of 2024-06-29
			wantKeep:   2,
			wantRemove: 46,
		},
		{
			name:       "defaults keep everything recent",
			versions:   hourlyVersions("a", 100),
			retention:  DefaultRetention(),
			wantKeep:   100,
			wantRemove: 0,
		},
		{
			name:       "keys are independent",
			versions:   append(hourlyVersions("a", 4), hourlyVersions("b", 4)...),
			retention:  Retention{Hourly: 2},
			wantKeep:   4,
			wantRemove: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, remove := Select(tt.versions, tt.retention)
			assert.Len(t, keep, tt.wantKeep)
			assert.Len(t, remove, tt.wantRemove)
		})
	}
}

func TestSelect_KeepsNewestPerPeriod(t *testing.T) {
	versions := []models.ObjectVersion{
		{Key: "k", VersionID: "d1-early", LastModified: base.Add(-30 * time.Hour)},
		{Key: "k", VersionID: "d0-late", LastModified: base, IsLatest: true},
		{Key: "k", VersionID: "d1-late", LastModified: base.Add(-14 * time.Hour)},
		{Key: "k", VersionID: "d0-early", LastModified: base.Add(-10 * time.Hour)},
		{Key: "k", VersionID: "d2", LastModified: base.Add(-40 * time.Hour)},
	}

	keep, remove := Select(versions, Retention{Daily: 2})
	assert.Equal(t, []string{"d0-late", "d1-late"}, ids(keep))
	assert.Equal(t, []string{"d0-early", "d1-early", "d2"}, ids(remove))
}

func TestSelect_LatestFlagAlwaysKept(t *testing.T) {
	versions := []models.ObjectVersion{
		{Key: "k", VersionID: "newer", LastModified: base},
		{Key: "k", VersionID: "current", LastModified: base.Add(-time.Minute), IsLatest: true},
	}

	keep, _ := Select(versions, Retention{})
	assert.ElementsMatch(t, []string{"newer", "current"}, ids(keep))
}

type fakeStore struct {
	versions []models.ObjectVersion
	deleted  []models.ObjectVersion
	err      error
}

func (f *fakeStore) ListObjectVersions(context.Context, string, string) ([]models.ObjectVersion, error) {
	return f.versions, nil
}

func (f *fakeStore) DeleteObjectVersions(_ context.Context, _ string, versions []models.ObjectVersion) (int, error) {
	f.deleted = append(f.deleted, versions...)
	return len(versions), f.err
}

func TestPruner_Prune(t *testing.T) {
	store := &fakeStore{versions: hourlyVersions("db.dump", 10)}
	var messages []string
	p := NewPruner(store).WithProgress(func(msg string) { messages = append(messages, msg) })

	result, err := p.Prune(context.Background(), "backups", "db", Retention{Hourly: 4}, false)
	require.NoError(t, err)
	assert.Len(t, result.Kept, 4)
	assert.Len(t, result.Deleted, 6)
	assert.Equal(t, int64(600), result.DeletedBytes())
	assert.Equal(t, ids(result.Deleted), ids(store.deleted))
	assert.Len(t, messages, 2)
}

func TestPruner_DryRun(t *testing.T) {
	store := &fakeStore{versions: hourlyVersions("db.dump", 10)}

	result, err := NewPruner(store).Prune(context.Background(), "backups", "", Retention{Hourly: 4}, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Len(t, result.Deleted, 6)
	assert.Empty(t, store.deleted)
}

func TestPruner_DeleteError(t *testing.T) {
	store := &fakeStore{versions: hourlyVersions("db.dump", 3), err: errors.New("AccessDenied")}

	result, err := NewPruner(store).Prune(context.Background(), "backups", "", Retention{}, false)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Deleted, 2)
}

func TestPruner_InvalidRetention(t *testing.T) {
	_, err := NewPruner(&fakeStore{}).Prune(context.Background(), "b", "", Retention{Daily: -1}, true)
	assert.Error(t, err)
}

func TestPruner_WithS3Client(t *testing.T) {
	fake := &awstest.S3{
		ListObjectVersionsFunc: func(*s3.ListObjectVersionsInput) (*s3.ListObjectVersionsOutput, error) {
			return &s3.ListObjectVersionsOutput{}, nil
		},
	}
	client := awsclient.NewS3ClientFromAPI(fake, "eu-west-1")

	result, err := NewPruner(client).Prune(context.Background(), "empty", "", DefaultRetention(), false)
	require.NoError(t, err)
	assert.Empty(t, result.Deleted)
	assert.Zero(t, fake.Count("DeleteObjects"))
}
