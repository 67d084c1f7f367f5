package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightassist/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(4)

	s, err := store.Create(ctx)
	require.NoError(t, err)
	assert.Len(t, s.ID, 36)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.History)
	assert.Nil(t, got.TripInfo)

	got.TripInfo = &models.TripInfo{DepartureDate: "2026-03-01"}
	got.PendingClarifyField = "arrival"
	for i := 0; i < 3; i++ {
		got.Append(0,
			models.Message{Role: models.RoleUser, Content: "q"},
			models.Message{Role: models.RoleAssistant, Content: "a"})
	}
	require.NoError(t, store.Put(ctx, got))

	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, again.History, 4)
	assert.Equal(t, "2026-03-01", again.TripInfo.DepartureDate)
	assert.Equal(t, "arrival", again.PendingClarifyField)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	s := New("fixed", time.Now())
	s.TripInfo = &models.TripInfo{DepartureDate: "2026-03-01"}
	require.NoError(t, store.Put(ctx, s))

	s.TripInfo.DepartureDate = "changed"
	got, err := store.Get(ctx, "fixed")
	require.NoError(t, err)
	got.History = append(got.History, models.Message{Role: models.RoleUser, Content: "x"})

	again, err := store.Get(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", again.TripInfo.DepartureDate)
	assert.Empty(t, again.History)
}

func TestMemoryStoreNotFound(t *testing.T) {
	_, err := NewMemoryStore(0).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecent(t *testing.T) {
	s := New("", time.Now())
	for i := 0; i < 10; i++ {
		s.Append(0, models.Message{Role: models.RoleUser, Content: string(rune('a' + i))})
	}

	recent := s.Recent(6)
	require.Len(t, recent, 6)
	assert.Equal(t, "e", recent[0].Content)
	assert.Equal(t, "j", recent[5].Content)
	assert.Len(t, s.Recent(0), 10)
}

func TestLocksSerializeSameID(t *testing.T) {
	locks := NewLocks()
	ctx := context.Background()

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Acquire(ctx, "s1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Equal(t, 0, locks.size())
}

func TestLocksIndependentIDs(t *testing.T) {
	locks := NewLocks()
	ctx := context.Background()

	unlockA, err := locks.Acquire(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locks.Acquire(ctx, "b")
	require.NoError(t, err)
	unlockB()
	unlockB()
}

func TestLocksHonourContext(t *testing.T) {
	locks := NewLocks()
	unlock, err := locks.Acquire(context.Background(), "s")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, "s")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, locks.size())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_HOST")
	if addr == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}

	cfg := DefaultRedisConfig()
	cfg.Host = addr
	cfg.HistoryLimit = 2
	cfg.TTL = time.Minute
	store, err := NewRedisStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s, err := store.Create(ctx)
	require.NoError(t, err)

	s.Append(0,
		models.Message{Role: models.RoleUser, Content: "1"},
		models.Message{Role: models.RoleAssistant, Content: "2"},
		models.Message{Role: models.RoleUser, Content: "3"})
	s.TripInfo = &models.TripInfo{Arrival: &models.Airport{Code: "HKG"}}
	require.NoError(t, store.Put(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 2)
	assert.Equal(t, "HKG", got.TripInfo.Arrival.Code)

	_, err = store.Get(ctx, "missing-"+s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
