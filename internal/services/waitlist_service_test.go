package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-system/config"
	"club-system/internal/notify"
	"club-system/monitoring"
)

func setupTestWaitlist() (*WaitlistService, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	cfg := &config.Config{
		PositionCacheTTL: 30 * time.Minute,
		WaitlistLockTTL:  10 * time.Second,
	}

	service := &WaitlistService{
		redis:   db,
		notify:  notify.NewService(nil, nil, slog.Default()),
		monitor: &monitoring.Monitor{},
		cfg:     cfg,
		logger:  slog.Default(),
	}
	return service, mock
}

func TestPlanPromotions(t *testing.T) {
	tests := []struct {
		name          string
		free          int
		queue         []queueEntry
		primaryGoing  map[string]bool
		wantPromote   []int
		wantRemaining []int
	}{
		{
			name:          "fills free slots in order",
			free:          2,
			queue:         []queueEntry{{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"}},
			primaryGoing:  map[string]bool{},
			wantPromote:   []int{0, 1},
			wantRemaining: []int{2},
		},
		{
			name:          "no free slots renumbers everyone",
			free:          0,
			queue:         []queueEntry{{UserID: "u1"}, {UserID: "u2"}},
			primaryGoing:  map[string]bool{},
			wantPromote:   nil,
			wantRemaining: []int{0, 1},
		},
		{
			name:          "family entry skipped while primary not going",
			free:          3,
			queue:         []queueEntry{{UserID: "u1", FamilyMemberID: "f1"}},
			primaryGoing:  map[string]bool{"u1": false},
			wantPromote:   nil,
			wantRemaining: []int{0},
		},
		{
			name:          "family entry promoted behind going primary",
			free:          1,
			queue:         []queueEntry{{UserID: "u1", FamilyMemberID: "f1"}},
			primaryGoing:  map[string]bool{"u1": true},
			wantPromote:   []int{0},
			wantRemaining: nil,
		},
		{
			name: "primary promoted earlier in the pass unlocks family",
			free: 2,
			queue: []queueEntry{
				{UserID: "u1"},
				{UserID: "u1", FamilyMemberID: "f1"},
			},
			primaryGoing:  map[string]bool{"u1": false},
			wantPromote:   []int{0, 1},
			wantRemaining: nil,
		},
		{
			name: "skipped family keeps its spot ahead of later entries",
			free: 1,
			queue: []queueEntry{
				{UserID: "u1", FamilyMemberID: "f1"},
				{UserID: "u2"},
				{UserID: "u3"},
			},
			primaryGoing:  map[string]bool{"u1": false},
			wantPromote:   []int{1},
			wantRemaining: []int{0, 2},
		},
		{
			name: "family waiting on its own queued primary stays behind it",
			free: 1,
			queue: []queueEntry{
				{UserID: "u1", FamilyMemberID: "f1"},
				{UserID: "u1"},
			},
			primaryGoing:  map[string]bool{"u1": false},
			wantPromote:   []int{1},
			wantRemaining: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promote, remaining := planPromotions(tt.free, tt.queue, tt.primaryGoing)
			assert.Equal(t, tt.wantPromote, promote)
			assert.Equal(t, tt.wantRemaining, remaining)
		})
	}
}

func TestShouldNotifyPosition(t *testing.T) {
	tests := []struct {
		position int
		want     bool
	}{
		{1, true},
		{5, true},
		{6, true},
		{7, false},
		{20, true},
		{21, false},
		{30, true},
		{95, false},
		{100, true},
		{101, false},
		{150, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldNotifyPosition(tt.position), "position %d", tt.position)
	}
}

func TestWaitlistService_AcquireLock(t *testing.T) {
	service, mock := setupTestWaitlist()
	defer mock.ClearExpected()

	ctx := context.Background()

	mock.Regexp().ExpectSetNX("waitlist:lock:evt1", `^[0-9A-F]+$`, 10*time.Second).SetVal(true)

	token, ok, err := service.acquireLock(ctx, "evt1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, token, 16)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistService_AcquireLock_Contended(t *testing.T) {
	service, mock := setupTestWaitlist()
	defer mock.ClearExpected()

	ctx := context.Background()

	mock.Regexp().ExpectSetNX("waitlist:lock:evt1", `^[0-9A-F]+$`, 10*time.Second).SetVal(false)

	_, ok, err := service.acquireLock(ctx, "evt1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistService_ReleaseLock(t *testing.T) {
	service, mock := setupTestWaitlist()
	defer mock.ClearExpected()

	ctx := context.Background()

	mock.ExpectEval(unlockScript, []string{"waitlist:lock:evt1"}, "AB12CD34").SetVal(int64(1))

	service.releaseLock(ctx, "evt1", "AB12CD34")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistService_PublishQueue(t *testing.T) {
	service, mock := setupTestWaitlist()
	defer mock.ClearExpected()

	ctx := context.Background()
	queue := []queuedNotice{
		{AttendeeID: "att1", UserID: "u1", Position: 1},
		{AttendeeID: "att2", UserID: "u2", Position: 2},
	}

	mock.ExpectSAdd("waitlist:events", "evt1").SetVal(1)
	mock.ExpectSet("waitlist:position:evt1:att1", 1, 30*time.Minute).SetVal("OK")
	mock.ExpectSet("waitlist:position:evt1:att2", 2, 30*time.Minute).SetVal("OK")

	service.publishQueue(ctx, "evt1", queue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistService_PublishQueue_EmptyClearsEvent(t *testing.T) {
	service, mock := setupTestWaitlist()
	defer mock.ClearExpected()

	ctx := context.Background()

	mock.ExpectSRem("waitlist:events", "evt1").SetVal(1)

	service.publishQueue(ctx, "evt1", nil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistService_Position_CacheHit(t *testing.T) {
	service, mock := setupTestWaitlist()
	defer mock.ClearExpected()

	ctx := context.Background()

	mock.ExpectGet("waitlist:position:evt1:att1").SetVal("4")

	pos, err := service.Position(ctx, "evt1", "att1")
	require.NoError(t, err)
	assert.Equal(t, 4, pos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func BenchmarkPlanPromotions(b *testing.B) {
	queue := make([]queueEntry, 200)
	for i := range queue {
		queue[i] = queueEntry{UserID: "user"}
	}
	primaryGoing := map[string]bool{"user": true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		planPromotions(50, queue, primaryGoing)
	}
}
