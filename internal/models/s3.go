package models

import "time"

// ObjectVersion represents one version of an S3 object
type ObjectVersion struct {
	Key          string
	VersionID    string
	LastModified time.Time
	Size         int64
	IsLatest     bool
}

// PruneResult is the outcome of pruning the versions under a prefix
type PruneResult struct {
	Bucket  string
	Prefix  string
	DryRun  bool
	Kept    []ObjectVersion
	Deleted []ObjectVersion
}

// DeletedBytes sums the size of deleted versions
func (r *PruneResult) DeletedBytes() int64 {
	var total int64
	for _, v := range r.Deleted {
		total += v.Size
	}
	return total
}
