package identifier

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type identifierRow struct {
	ID    int64  `gorm:"primaryKey"`
	JobID string `gorm:"uniqueIndex;column:job_id"`
}

func (identifierRow) TableName() string { return "jobs" }

func setupAllocatorDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:allocator_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&identifierRow{}))
	return conn
}

func TestNextStartsAtOne(t *testing.T) {
	conn := setupAllocatorDB(t)
	a := New(Params{Log: zap.NewNop()})

	id, err := a.Next(context.Background(), conn, "jobs", "job_id", JobPrefix(2025))
	require.NoError(t, err)
	assert.Equal(t, "JOB-2025-0001", id)
}

func TestNextIncrementsHighest(t *testing.T) {
	conn := setupAllocatorDB(t)
	a := New(Params{Log: zap.NewNop()})

	require.NoError(t, conn.Create(&identifierRow{ID: 1, JobID: "JOB-2025-0001"}).Error)
	require.NoError(t, conn.Create(&identifierRow{ID: 2, JobID: "JOB-2025-0007"}).Error)
	require.NoError(t, conn.Create(&identifierRow{ID: 3, JobID: "JOB-2024-0042"}).Error)

	id, err := a.Next(context.Background(), conn, "jobs", "job_id", JobPrefix(2025))
	require.NoError(t, err)
	assert.Equal(t, "JOB-2025-0008", id)

	id, err = a.Next(context.Background(), conn, "jobs", "job_id", JobPrefix(2024))
	require.NoError(t, err)
	assert.Equal(t, "JOB-2024-0043", id)

	id, err = a.Next(context.Background(), conn, "jobs", "job_id", JobPrefix(2026))
	require.NoError(t, err)
	assert.Equal(t, "JOB-2026-0001", id)
}

func TestNextMalformedPredecessorRestarts(t *testing.T) {
	conn := setupAllocatorDB(t)
	a := New(Params{Log: zap.NewNop()})

	require.NoError(t, conn.Create(&identifierRow{ID: 1, JobID: "JOB-2025-draft"}).Error)

	id, err := a.Next(context.Background(), conn, "jobs", "job_id", JobPrefix(2025))
	require.NoError(t, err)
	assert.Equal(t, "JOB-2025-0001", id)
}

func TestFromSerial(t *testing.T) {
	id, ok := FromSerial("PRT-PLA-", "SN-88129")
	require.True(t, ok)
	assert.Equal(t, "PRT-PLA-8129", id)

	_, ok = FromSerial("PRT-PLA-", "X1")
	assert.False(t, ok)

	id, ok = FromSerial("PRT-PLA-", "0042")
	require.True(t, ok)
	assert.Equal(t, "PRT-PLA-0042", id)
}

func TestPrefixBuilders(t *testing.T) {
	assert.Equal(t, "JOB-2025-", JobPrefix(2025))
	assert.Equal(t, "CLI-2025-", ClientPrefix(2025))
	assert.Equal(t, "PRT-PLA-", MaterialPrefix("prt", "pla"))
	assert.Equal(t, "FDM-", MachinePrefix("fdm"))
	assert.Equal(t, "PERS-ALIC-2025", PersonalJobID("alice", 2025))
	assert.Equal(t, "PERS-BO-2025", PersonalJobID("bo", 2025))
}
