package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// memStore keeps the last saved state; saveErr makes Save fail
type memStore struct {
	mu      sync.Mutex
	state   *State
	saves   int
	saveErr error
}

func (m *memStore) Load(_ context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return NewState(), nil
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(_ context.Context, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = s.Clone()
	return nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger(t *testing.T, cash string) (*Ledger, *memStore) {
	t.Helper()
	store := &memStore{}
	l, err := Open(context.Background(), store, strategyconfig.Default().Fees, logger.Nop())
	require.NoError(t, err)
	if cash != "" {
		_, err := l.Deposit(context.Background(), d(cash))
		require.NoError(t, err)
	}
	return l, store
}

func TestLedger_BuySellRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, "200000")

	buy, err := l.Buy(ctx, "X", 100, d("1000"))
	require.NoError(t, err)
	assert.True(t, buy.Amount.Equal(d("100150")), "cost includes 0.15%% fee, got %s", buy.Amount)
	assert.True(t, buy.Fee.Equal(d("150")))

	res, err := l.Sell(ctx, "X", 100, d("1100"))
	require.NoError(t, err)

	// 200000 - 100*1000*1.0015 + 100*1100*0.999
	assert.True(t, l.Cash().Equal(d("209740")), "cash = %s", l.Cash())
	assert.True(t, res.Proceeds.Equal(d("109890")))
	assert.True(t, res.PnL.Equal(d("9890")))
	assert.True(t, res.PnLPercent.Equal(d("9.89")), "pnl%% = %s", res.PnLPercent)
	assert.Equal(t, int64(0), res.RemainingShares)

	_, ok := l.Position("X")
	assert.False(t, ok, "position removed at zero shares")

	history := l.History()
	require.Len(t, history, 3)
	assert.Equal(t, []TxType{TxDeposit, TxBuy, TxSell},
		[]TxType{history[0].Type, history[1].Type, history[2].Type})
	require.NotNil(t, history[2].PnL)
	assert.True(t, history[2].PnL.Equal(d("9890")))
}

func TestLedger_WeightedAverageCost(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, "1000000")

	_, err := l.Buy(ctx, "X", 100, d("1000"))
	require.NoError(t, err)
	_, err = l.Buy(ctx, "X", 100, d("1200"))
	require.NoError(t, err)

	pos, ok := l.Position("X")
	require.True(t, ok)
	assert.Equal(t, int64(200), pos.Shares)
	assert.True(t, pos.AvgCost.Equal(d("1100")), "avg cost = %s", pos.AvgCost)
	assert.Len(t, l.Positions(), 1)
}

func TestLedger_PartialSell(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, "1000000")

	_, err := l.Buy(ctx, "X", 100, d("1000"))
	require.NoError(t, err)

	res, err := l.Sell(ctx, "X", 40, d("900"))
	require.NoError(t, err)
	assert.Equal(t, int64(60), res.RemainingShares)
	assert.True(t, res.PnL.IsNegative())

	pos, ok := l.Position("X")
	require.True(t, ok)
	assert.Equal(t, int64(60), pos.Shares)
	assert.True(t, pos.AvgCost.Equal(d("1000")), "sells keep average cost")
}

func TestLedger_PreconditionsLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		op      func(l *Ledger) error
		wantErr error
	}{
		{
			name: "sell more than held",
			op: func(l *Ledger) error {
				_, err := l.Sell(ctx, "X", 101, d("1000"))
				return err
			},
			wantErr: contracts.ErrInsufficientShares,
		},
		{
			name: "sell without position",
			op: func(l *Ledger) error {
				_, err := l.Sell(ctx, "NOPE", 1, d("1000"))
				return err
			},
			wantErr: contracts.ErrNoPosition,
		},
		{
			name: "buy beyond cash",
			op: func(l *Ledger) error {
				// 1000 * 1000 * 1.0015 > remaining cash
				_, err := l.Buy(ctx, "Y", 1000, d("1000"))
				return err
			},
			wantErr: contracts.ErrInsufficientFunds,
		},
		{
			name: "zero shares",
			op: func(l *Ledger) error {
				_, err := l.Buy(ctx, "Y", 0, d("1000"))
				return err
			},
			wantErr: contracts.ErrInvalidAmount,
		},
		{
			name: "zero price",
			op: func(l *Ledger) error {
				_, err := l.Sell(ctx, "X", 1, decimal.Zero)
				return err
			},
			wantErr: contracts.ErrInvalidAmount,
		},
		{
			name: "negative deposit",
			op: func(l *Ledger) error {
				_, err := l.Deposit(ctx, d("-5"))
				return err
			},
			wantErr: contracts.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := newTestLedger(t, "200000")
			_, err := l.Buy(ctx, "X", 100, d("1000"))
			require.NoError(t, err)

			before := l.Snapshot()
			saves := store.saves

			err = tt.op(l)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			assert.Equal(t, before, l.Snapshot())
			assert.Equal(t, saves, store.saves, "nothing persisted")
		})
	}
}

func TestLedger_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t, "200000")
	before := l.Snapshot()

	diskFull := errors.New("disk full")
	store.saveErr = diskFull

	_, err := l.Buy(ctx, "X", 10, d("1000"))
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, before, l.Snapshot())

	_, err = l.Deposit(ctx, d("1"))
	assert.ErrorIs(t, err, diskFull)
	assert.True(t, l.Cash().Equal(d("200000")))

	store.saveErr = nil
	_, err = l.Buy(ctx, "X", 10, d("1000"))
	require.NoError(t, err)
	assert.Len(t, store.state.Positions, 1)
}

func TestLedger_EveryMutationPersists(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t, "")

	_, err := l.Deposit(ctx, d("50000"))
	require.NoError(t, err)
	_, err = l.Buy(ctx, "abc ", 10, d("100"))
	require.NoError(t, err)

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, l.Snapshot(), store.state)

	pos, ok := l.Position("ABC")
	require.True(t, ok, "symbols are normalised")
	assert.Equal(t, "ABC", pos.Symbol)
}

func TestLedger_SnapshotIsDeepCopy(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, "100000")
	_, err := l.Buy(ctx, "X", 10, d("100"))
	require.NoError(t, err)

	snap := l.Snapshot()
	snap.Positions[0].Shares = 999
	snap.History = append(snap.History, Transaction{Type: TxDeposit})
	snap.Cash = decimal.Zero

	pos, _ := l.Position("X")
	assert.Equal(t, int64(10), pos.Shares)
	assert.Len(t, l.History(), 2)
	assert.False(t, l.Cash().IsZero())
}

func TestLedger_ConcurrentDeposits(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Deposit(ctx, decimal.NewFromInt(1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, l.Cash().Equal(decimal.NewFromInt(50)))
	assert.Len(t, l.History(), 50)
	assert.True(t, store.state.Cash.Equal(decimal.NewFromInt(50)))
}
