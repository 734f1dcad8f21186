package instance

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/logger"
	"github.com/younsl/ec2utils/internal/models"
)

// RegionEnv is exported with the instance region so that SDK clients created
// later in the process inherit it
const RegionEnv = "AWS_DEFAULT_REGION"

// Info serves the snapshot of the current instance. Once loaded the snapshot
// stays in memory until ClearCache, regardless of the cache file TTL.
type Info struct {
	mu       sync.RWMutex
	cache    *Cache
	builder  SnapshotBuilder
	snapshot *models.InstanceSnapshot
	loaded   bool
	setenv   func(key, value string) error
}

// NewInfo creates an Info that has not loaded anything yet
func NewInfo(cache *Cache, builder SnapshotBuilder) *Info {
	return &Info{
		cache:    cache,
		builder:  builder,
		snapshot: &models.InstanceSnapshot{},
		setenv:   os.Setenv,
	}
}

// Load reads the snapshot from the cache file or builds and stores it. It
// does nothing when a snapshot is already loaded.
func (i *Info) Load(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadLocked(ctx)
}

func (i *Info) loadLocked(ctx context.Context) error {
	if i.loaded {
		return nil
	}
	log := logger.GetLogger()

	snapshot, ok := i.cache.Load()
	if !ok {
		built, err := i.builder.Build(ctx)
		if err != nil {
			i.snapshot = &models.InstanceSnapshot{}
			return err
		}
		snapshot = built

		path, err := i.cache.Store(snapshot)
		if err != nil {
			log.Warn("Instance data not cached", zap.Error(err))
		} else {
			log.Debug("Stored instance data", zap.String("path", path))
		}
	}

	Finalize(snapshot)
	if snapshot.Region != "" {
		_ = i.setenv(RegionEnv, snapshot.Region)
	}
	i.snapshot = snapshot
	i.loaded = true
	return nil
}

// ClearCache deletes the cache file and rebuilds the snapshot from live sources
func (i *Info) ClearCache(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.cache.Clear(); err != nil {
		return err
	}
	i.reset()
	return i.loadLocked(ctx)
}

// Reset forgets the in-memory snapshot without touching the cache file
func (i *Info) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.reset()
}

func (i *Info) reset() {
	i.snapshot = &models.InstanceSnapshot{}
	i.loaded = false
}

func (i *Info) current() *models.InstanceSnapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.snapshot
}

// StackName returns the name of the owning stack
func (i *Info) StackName() string { return i.current().StackName }

// StackID returns the id of the owning stack
func (i *Info) StackID() string { return i.current().StackID }

// LogicalID returns the logical id of the instance in its stack
func (i *Info) LogicalID() string { return i.current().LogicalID }

// InstanceID returns the instance id
func (i *Info) InstanceID() string { return i.current().InstanceID }

// Region returns the instance region
func (i *Info) Region() string { return i.current().Region }

// AvailabilityZone returns the instance availability zone
func (i *Info) AvailabilityZone() string { return i.current().AvailabilityZone }

// PrivateIP returns the primary private IP address
func (i *Info) PrivateIP() string { return i.current().PrivateIP }

// InitialStatus returns the stack status seen when the snapshot was built
func (i *Info) InitialStatus() string { return i.current().InitialStatus }

// Tag returns the value of tag name, or an empty string
func (i *Info) Tag(name string) string {
	return i.current().Tags[name]
}

// Tags returns a copy of all tags, or nil when there are none
func (i *Info) Tags() map[string]string {
	return copyMap(i.current().Tags)
}

// NetworkInterfaces returns the ids of the attached interfaces ordered by device index
func (i *Info) NetworkInterfaces() []string {
	ifaces := i.current().NetworkInterfaces
	if len(ifaces) == 0 {
		return nil
	}
	sorted := make([]models.NetworkInterface, len(ifaces))
	copy(sorted, ifaces)
	models.SortNetworkInterfaces(sorted)

	ids := make([]string, 0, len(sorted))
	for _, iface := range sorted {
		ids = append(ids, iface.ID)
	}
	return ids
}

// StackData returns a parameter, output or resource id of the owning stack,
// or an empty string
func (i *Info) StackData(name string) string {
	return i.current().StackData[name]
}

// StackDataMap returns a copy of all stack data, or nil outside a stack
func (i *Info) StackDataMap() map[string]string {
	return copyMap(i.current().StackData)
}

// FullStackData returns the description of the owning stack, or nil
func (i *Info) FullStackData() *models.StackDescription {
	return i.current().FullStackData
}

// Snapshot returns the loaded snapshot. Callers must not modify it.
func (i *Info) Snapshot() *models.InstanceSnapshot {
	return i.current()
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
