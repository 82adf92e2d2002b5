package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/nimasrn/lead-crm/internal/model"
	"github.com/nimasrn/lead-crm/internal/repository"
	"github.com/nimasrn/lead-crm/pkg/pg"
	"github.com/nimasrn/lead-crm/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB opens a migrated in-memory sqlite database.
func SetupTestDB(t *testing.T) *pg.DB {
	return pg.Wrap(openTestGorm(t))
}

// SetupLaggingReplicaDB pairs a migrated write side with a read side that
// never receives any rows, like a replica that has fallen behind.
func SetupLaggingReplicaDB(t *testing.T) *pg.DB {
	return pg.WrapPair(openTestGorm(t), openTestGorm(t))
}

func openTestGorm(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&repository.LeadEntity{},
		&repository.LeadStateHistoryEntity{},
	)
	require.NoError(t, err)
	return db
}

// SetupTestRedis starts a miniredis server and registers an adapter for it
// under a name unique to the test.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	connName := "test-" + uuid.NewString()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { redis.Forget(connName) })

	return mr, adapter
}

// CreateTestLead inserts a lead in state with the given last contact time.
// Leads not in NewLead get a two-entry history.
func CreateTestLead(t *testing.T, db *pg.DB, handle string, channel model.Channel, state model.LeadState, at time.Time) *model.Lead {
	history := []model.StateChange{
		{State: model.StateNewLead, Note: model.InitialHistoryNote, Timestamp: at},
	}
	if state != model.StateNewLead {
		history = append(history, model.StateChange{State: state, Note: model.DefaultTransitionNote(model.StateNewLead, state), Timestamp: at})
	}
	lead := &model.Lead{
		ID:              uuid.NewString(),
		Handle:          handle,
		Channel:         channel,
		State:           state,
		StateHistory:    history,
		LastContactedAt: at,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	created, err := repository.NewLeadRepository(db).Create(context.Background(), lead)
	require.NoError(t, err)
	return created
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func Ptr[T any](v T) *T {
	return &v
}
