package di

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-engine/cache"
	"github.com/goliatone/go-repository-engine/ledger"
	"github.com/goliatone/go-repository-engine/repository"
	"github.com/goliatone/go-repository-engine/store/memstore"
	"github.com/shopspring/decimal"
)

func TestNewContainer(t *testing.T) {
	config := Config{
		Cache: cache.Config{
			Capacity:           1000,
			NumShards:          256,
			EntityTTL:          5 * time.Minute,
			ListTTL:            time.Minute,
			CountTTL:           30 * time.Second,
			EvictionPercentage: 10,
			EarlyRefresh: &cache.EarlyRefreshConfig{
				MinAsyncRefreshTime: 10 * time.Second,
				MaxAsyncRefreshTime: 20 * time.Second,
				SyncRefreshTime:     30 * time.Second,
				RetryBaseDelay:      100 * time.Millisecond,
			},
			MissingRecordStorage: true,
			EvictionInterval:     0,
		},
	}

	container, err := NewContainer(config)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container == nil {
		t.Fatal("NewContainer() returned nil container")
	}

	// Verify that dependencies are properly initialized
	if container.CacheService() == nil {
		t.Error("Container should have a non-nil cache service")
	}

	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}

	if container.Logger() == nil {
		t.Error("Container should have a non-nil logger")
	}

	// Verify config is stored correctly
	storedConfig := container.Config()
	if storedConfig.Cache.Capacity != config.Cache.Capacity {
		t.Errorf("Expected capacity %d, got %d", config.Cache.Capacity, storedConfig.Cache.Capacity)
	}

	if storedConfig.Cache.EntityTTL != config.Cache.EntityTTL {
		t.Errorf("Expected entity TTL %v, got %v", config.Cache.EntityTTL, storedConfig.Cache.EntityTTL)
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	if container == nil {
		t.Fatal("NewContainerWithDefaults() returned nil container")
	}

	// Verify that default configuration is used
	config := container.Config()
	defaultConfig := cache.DefaultConfig()

	if config.Cache.Capacity != defaultConfig.Capacity {
		t.Errorf("Expected default capacity %d, got %d", defaultConfig.Capacity, config.Cache.Capacity)
	}

	if config.Cache.EntityTTL != defaultConfig.EntityTTL {
		t.Errorf("Expected default entity TTL %v, got %v", defaultConfig.EntityTTL, config.Cache.EntityTTL)
	}

	if config.Cache.CountTTL != defaultConfig.CountTTL {
		t.Errorf("Expected default count TTL %v, got %v", defaultConfig.CountTTL, config.Cache.CountTTL)
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	invalidConfig := Config{
		Cache: cache.Config{
			Capacity:           0, // Invalid: must be > 0
			NumShards:          256,
			EntityTTL:          5 * time.Minute,
			ListTTL:            time.Minute,
			CountTTL:           30 * time.Second,
			EvictionPercentage: 10,
		},
	}

	_, err := NewContainer(invalidConfig)
	if err == nil {
		t.Error("NewContainer() should fail with invalid config")
	}
}

func TestNewContainer_UnknownBackend(t *testing.T) {
	_, err := NewContainer(Config{Backend: "memcached"})
	if err == nil {
		t.Error("NewContainer() should fail with an unknown backend")
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	// Call getters multiple times to ensure they return the same instances
	cacheService1 := container.CacheService()
	cacheService2 := container.CacheService()

	if cacheService1 != cacheService2 {
		t.Error("CacheService() should return the same instance (singleton behavior)")
	}

	keySerializer1 := container.KeySerializer()
	keySerializer2 := container.KeySerializer()

	if keySerializer1 != keySerializer2 {
		t.Error("KeySerializer() should return the same instance (singleton behavior)")
	}
}

type inventoryItem struct {
	repository.Model

	Label string `bun:"label" json:"label"`
}

type warehouseSlot struct {
	repository.Model

	Aisle int `bun:"aisle" json:"aisle"`
}

func TestRepositoryMemoization(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	db := memstore.NewDB()
	items := memstore.New[*inventoryItem](db)
	slots := memstore.New[*warehouseSlot](db)

	base1 := NewRepository[*inventoryItem](container, items)
	base2 := NewRepository[*inventoryItem](container, items)
	if base1 != base2 {
		t.Error("NewRepository should return the memoized instance for the same record type")
	}

	if other := NewRepository[*warehouseSlot](container, slots); any(other) == any(base1) {
		t.Error("distinct record types must not share an instance")
	}

	cached1 := NewCachedRepository[*inventoryItem](container, base1)
	cached2 := NewCachedRepository[*inventoryItem](container, base1)
	if cached1 != cached2 {
		t.Error("NewCachedRepository should return the memoized instance")
	}

	paged1 := NewPaginated[*inventoryItem](container, cached1)
	paged2 := NewPaginated[*inventoryItem](container, cached1)
	if paged1 != paged2 {
		t.Error("NewPaginated should return the memoized instance")
	}

	// A separate container keeps its own instances.
	second, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	if NewRepository[*inventoryItem](second, items) == base1 {
		t.Error("containers must not share memoized instances")
	}
}

func TestNewLedger(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	db := memstore.NewDB()
	st := memstore.NewWithTable[*ledger.Entry](db, ledger.TableName)

	l := NewLedger(container, st, repository.WithTxRunner(db))
	if l == nil {
		t.Fatal("NewLedger() returned nil")
	}
	if again := NewLedger(container, st, repository.WithTxRunner(db)); again != l {
		t.Error("NewLedger should return the memoized instance")
	}

	ctx := context.Background()
	_, err = l.CreateEntry(ctx, ledger.EntryInput{
		SubjectID:     "acc-1",
		Kind:          ledger.KindDeposit,
		Amount:        decimal.NewFromInt(500),
		BalanceBefore: decimal.Zero,
		BalanceAfter:  decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("CreateEntry through the container wiring failed: %v", err)
	}

	balance, err := l.LatestBalance(ctx, "acc-1")
	if err != nil {
		t.Fatalf("LatestBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("balance = %s, want 500", balance)
	}
}

func TestKeySerializerIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	keySerializer := container.KeySerializer()

	// Test key serialization with various argument types
	testCases := []struct {
		name     string
		method   string
		args     []any
		expected string
	}{
		{
			name:     "no args",
			method:   "Get",
			args:     []any{},
			expected: "Get",
		},
		{
			name:     "single string arg",
			method:   "GetByID",
			args:     []any{"123"},
			expected: "GetByID::123",
		},
		{
			name:     "multiple args",
			method:   "List",
			args:     []any{"user", 10, true},
			expected: "List::user::10::true",
		},
		{
			name:     "nil arg",
			method:   "Count",
			args:     []any{nil},
			expected: "Count::nil",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := keySerializer.SerializeKey(tc.method, tc.args...)
			if result != tc.expected {
				t.Errorf("Expected key %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestCacheServiceIntegration(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	cacheService := container.CacheService()
	ctx := context.Background()

	// Test basic cache operations
	key := "test-key"
	expectedValue := "test-value"

	// Define a fetch function that returns our test value
	fetchFn := func(ctx context.Context) (string, error) {
		return expectedValue, nil
	}

	// Get or fetch should call our function and return the value
	result, err := cacheService.GetOrFetch(ctx, key, cache.ClassEntity, fetchFn)
	if err != nil {
		t.Fatalf("GetOrFetch() failed: %v", err)
	}

	if result != expectedValue {
		t.Errorf("Expected value %q, got %q", expectedValue, result)
	}

	// Delete should not return an error (even if it's a no-op)
	err = cacheService.Delete(ctx, key)
	if err != nil {
		t.Errorf("Delete() failed: %v", err)
	}
}
