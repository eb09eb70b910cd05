package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	state, _ := args.Get(0).(*UserState)
	return state, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	args := m.Called(ctx, userID, state)
	return args.Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func TestStateMachine_TransitionTo(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "successful transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateSubjectName}, nil).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(state *UserState) bool {
					return state.CurrentState == StateSubjectDescription
				})).Return(nil).Once()
			},
			newState:    StateSubjectDescription,
			expectedErr: nil,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
			},
			newState:    StateAwaitingOptionConfirm,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "new user transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(state *UserState) bool {
					return state.CurrentState == StateTaskName
				})).Return(nil).Once()
			},
			newState:    StateTaskName,
			expectedErr: nil,
		},
		{
			name: "transition to idle clears the record",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateTaskDueDate, Data: map[string]string{"name": "x"}}, nil).Once()
				ms.On("ClearState", mock.Anything, userID).Return(nil).Once()
			},
			newState:    StateIdle,
			expectedErr: nil,
		},
		{
			name:        "unknown state rejected",
			setupMocks:  func(ms *mockStorage) { ms.On("GetState", mock.Anything, userID).Return(Idle(userID), nil).Once() },
			newState:    State("buying_confirm"),
			expectedErr: ErrUnknownState,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, nil, log)
			err := fsm.TransitionTo(ctx, userID, tc.newState)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_GetState(t *testing.T) {
	ctx := context.Background()
	userID := int64(7)
	log := testLogger()

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		expectState State
		expectErr   error
	}{
		{
			name: "state found",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{UserID: userID, CurrentState: StateTaskDescription}, nil).Once()
			},
			expectState: StateTaskDescription,
		},
		{
			name: "state not found is idle",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
			},
			expectState: StateIdle,
		},
		{
			name: "storage failure propagates",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)
			fsm := NewStateMachine(ms, nil, log)

			st, err := fsm.GetState(ctx, userID)

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				assert.Nil(t, st)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectState, st.CurrentState)
				assert.Equal(t, userID, st.UserID)
				assert.NotNil(t, st.Data)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_SetState(t *testing.T) {
	ctx := context.Background()
	userID := int64(11)
	log := testLogger()

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		target     State
		expectErr  error
	}{
		{
			name: "set state success",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).Return(Idle(userID), nil).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(userState *UserState) bool {
					return userState.CurrentState == StateTaskName && userState.Data["subject_id"] == "3"
				})).Return(nil).Once()
			},
			target: StateTaskName,
		},
		{
			name: "set state error",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).Return(Idle(userID), nil).Once()
				ms.On("SetState", mock.Anything, userID, mock.Anything).
					Return(errStorageFailure).Once()
			},
			target:    StateTaskName,
			expectErr: errStorageFailure,
		},
		{
			name:       "unknown state",
			setupMocks: func(ms *mockStorage) {},
			target:     State("nope"),
			expectErr:  ErrUnknownState,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, nil, log)
			err := fsm.SetState(ctx, userID, tc.target, map[string]string{"subject_id": "3"})

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_ClearState(t *testing.T) {
	ctx := context.Background()
	userID := int64(13)
	log := testLogger()

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		expectErr  error
	}{
		{
			name: "clear state success",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).Return(&UserState{CurrentState: StateTaskName}, nil).Once()
				ms.On("ClearState", mock.Anything, userID).
					Return(nil).Once()
			},
		},
		{
			name: "clear state error",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).Return(&UserState{CurrentState: StateTaskName}, nil).Once()
				ms.On("ClearState", mock.Anything, userID).
					Return(errStorageFailure).Once()
			},
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, nil, log)
			err := fsm.ClearState(ctx, userID)

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_UpdateFieldsMerges(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), nil, testLogger())

	require.NoError(t, fsm.SetState(ctx, 5, StateTaskName, map[string]string{"subject_id": "9"}))
	require.NoError(t, fsm.UpdateFields(ctx, 5, map[string]string{"name": "Limits"}))
	require.NoError(t, fsm.UpdateFields(ctx, 5, map[string]string{"name": "Derivatives"}))

	st, err := fsm.GetState(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateTaskName, st.CurrentState)
	assert.Equal(t, map[string]string{"subject_id": "9", "name": "Derivatives"}, st.Data)

	other, err := fsm.GetState(ctx, 6)
	require.NoError(t, err)
	assert.True(t, other.IsIdle())
	assert.Empty(t, other.Data)
}

func TestStateMachine_UpdateIsSerializedPerUser(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	locker := NewRedisLocker(client, testLogger(), 5*time.Second, 10*time.Second)
	fsm := NewStateMachine(NewMemoryStorage(), locker, testLogger())

	ctx := context.Background()
	userID := int64(77)
	require.NoError(t, fsm.SetState(ctx, userID, StateTaskName, map[string]string{"count": "0"}))

	const workers = 20
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.Update(ctx, userID, func(s *UserState) error {
				n, err := strconv.Atoi(s.Field("count"))
				if err != nil {
					return err
				}
				s.Merge(map[string]string{"count": strconv.Itoa(n + 1)})
				return nil
			})
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	st, err := fsm.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), st.Field("count"))
}

func TestStateMachine_Lock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newSlowStorage(100 * time.Millisecond)
	fsm := NewStateMachine(storage, NewRedisLocker(client, testLogger(), time.Second, 0), testLogger())

	ctx := context.Background()
	userID := int64(78)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.SetState(ctx, userID, StateSubjectName, nil)
		}()
	}

	wg.Wait()
	close(errCh)

	var success, locked int
	for err := range errCh {
		if err == nil {
			success++
			continue
		}

		if errors.Is(err, ErrStateLocked) {
			locked++
			continue
		}

		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, locked)
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// slowStorage delays writes so concurrent callers overlap.
type slowStorage struct {
	*MemoryStorage
	delay time.Duration
}

func newSlowStorage(delay time.Duration) *slowStorage {
	return &slowStorage{MemoryStorage: NewMemoryStorage(), delay: delay}
}

func (s *slowStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	time.Sleep(s.delay)
	return s.MemoryStorage.SetState(ctx, userID, state)
}
