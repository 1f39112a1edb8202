package commit

import (
	"context"
	"errors"
	"testing"

	"tradedesk/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Save(ctx context.Context, entry ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockExecutor) Close(ctx context.Context, symbol string, kind ledger.Kind, id int) error {
	args := m.Called(ctx, symbol, kind, id)
	return args.Error(0)
}

func stageEntry() ledger.Entry {
	return ledger.Entry{
		ID:       3,
		Symbol:   "BTC/USDT",
		Exchange: "binance",
		Side:     ledger.SideLong,
		Kind:     ledger.KindMarket,
		Price:    50000,
		Amount:   0.1,
	}
}

func TestStageAndConfirmSave(t *testing.T) {
	exec := new(MockExecutor)
	s := NewStager(exec)
	entry := stageEntry()
	exec.On("Save", mock.Anything, entry).Return(nil)

	cmd := s.Stage(OpSave, entry, "raise target")
	assert.NotEmpty(t, cmd.ID)
	assert.Equal(t, "raise target", cmd.Message)
	assert.Contains(t, cmd.Summary, "save BTC/USDT @ binance")

	pending, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, cmd.ID, pending.ID)

	got, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cmd.ID, got.ID)
	exec.AssertExpectations(t)

	_, ok = s.Pending()
	assert.False(t, ok, "confirm consumes the command")
}

func TestStageAndConfirmClose(t *testing.T) {
	exec := new(MockExecutor)
	s := NewStager(exec)
	entry := stageEntry()
	exec.On("Close", mock.Anything, "BTC/USDT", ledger.KindMarket, 3).Return(nil)

	s.Stage(OpClose, entry, "")
	_, err := s.Confirm(context.Background())
	require.NoError(t, err)
	exec.AssertExpectations(t)
}

func TestConfirmWithNothingStaged(t *testing.T) {
	s := NewStager(new(MockExecutor))
	_, err := s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrNothingStaged)
}

func TestLastStageWins(t *testing.T) {
	exec := new(MockExecutor)
	s := NewStager(exec)

	first := stageEntry()
	second := stageEntry()
	second.Price = 60000
	exec.On("Save", mock.Anything, second).Return(nil)

	s.Stage(OpSave, first, "")
	replacement := s.Stage(OpSave, second, "")

	pending, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, replacement.ID, pending.ID)

	_, err := s.Confirm(context.Background())
	require.NoError(t, err)
	exec.AssertExpectations(t)
	exec.AssertNumberOfCalls(t, "Save", 1)
}

func TestCancelDiscardsWithoutExecuting(t *testing.T) {
	exec := new(MockExecutor)
	s := NewStager(exec)

	s.Stage(OpSave, stageEntry(), "")
	assert.True(t, s.Cancel())
	assert.False(t, s.Cancel(), "nothing left to cancel")

	_, err := s.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrNothingStaged)
	exec.AssertNotCalled(t, "Save")
}

func TestConfirmConsumesCommandOnFailure(t *testing.T) {
	exec := new(MockExecutor)
	s := NewStager(exec)
	boom := errors.New("backend down")
	exec.On("Save", mock.Anything, mock.Anything).Return(boom)

	s.Stage(OpSave, stageEntry(), "")
	cmd, err := s.Confirm(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, OpSave, cmd.Op)

	_, ok := s.Pending()
	assert.False(t, ok, "failed confirm still consumes the command")
}

func TestSummarize(t *testing.T) {
	got := Summarize(OpClose, stageEntry())
	assert.Equal(t, "close BTC/USDT @ binance long/market price=50000 amount=0.1", got)
}
