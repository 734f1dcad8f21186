package prune

import (
	"context"

	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/logger"
	"github.com/younsl/ec2utils/internal/models"
)

// VersionStore lists and deletes object versions
type VersionStore interface {
	ListObjectVersions(ctx context.Context, bucket, prefix string) ([]models.ObjectVersion, error)
	DeleteObjectVersions(ctx context.Context, bucket string, versions []models.ObjectVersion) (int, error)
}

// Pruner removes object versions that fall outside a retention
type Pruner struct {
	store    VersionStore
	progress func(msg string)
}

// NewPruner creates a Pruner over store
func NewPruner(store VersionStore) *Pruner {
	return &Pruner{
		store:    store,
		progress: func(string) {},
	}
}

// WithProgress sets a callback that receives short status messages
func (p *Pruner) WithProgress(fn func(msg string)) *Pruner {
	p.progress = fn
	return p
}

// Prune lists all versions under prefix and deletes those not selected for
// keeping. With dryRun nothing is deleted and the result lists what would be.
func (p *Pruner) Prune(ctx context.Context, bucket, prefix string, r Retention, dryRun bool) (*models.PruneResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	log := logger.GetLogger()

	p.progress("Listing object versions in " + bucket)
	versions, err := p.store.ListObjectVersions(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}

	keep, remove := Select(versions, r)
	result := &models.PruneResult{
		Bucket:  bucket,
		Prefix:  prefix,
		DryRun:  dryRun,
		Kept:    keep,
		Deleted: remove,
	}
	log.Debug("Selected versions to prune",
		zap.String("bucket", bucket),
		zap.String("prefix", prefix),
		zap.Int("versions", len(versions)),
		zap.Int("keep", len(keep)),
		zap.Int("delete", len(remove)))

	if dryRun || len(remove) == 0 {
		return result, nil
	}

	p.progress("Deleting object versions in " + bucket)
	deleted, err := p.store.DeleteObjectVersions(ctx, bucket, remove)
	if err != nil {
		log.Warn("Some versions were not deleted",
			zap.String("bucket", bucket),
			zap.Int("deleted", deleted),
			zap.Int("selected", len(remove)),
			zap.Error(err))
		return result, err
	}
	return result, nil
}
