// Package portfolio keeps the cash and positions ledger, persists it and
// marks it to market.
package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nicebigrose/stock-analysis-system/internal/contracts"
	"github.com/nicebigrose/stock-analysis-system/internal/strategyconfig"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

// SchemaVersion is the persisted ledger layout version
const SchemaVersion = 1

// TxType is a ledger transaction kind
type TxType string

const (
	TxDeposit TxType = "deposit"
	TxBuy     TxType = "buy"
	TxSell    TxType = "sell"
)

// Position is an open holding. AvgCost excludes fees.
type Position struct {
	Symbol   string          `json:"symbol"`
	Shares   int64           `json:"shares"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
	OpenedAt time.Time       `json:"opened_at"`
}

// CostBasis is shares x average cost
func (p Position) CostBasis() decimal.Decimal {
	return p.AvgCost.Mul(decimal.NewFromInt(p.Shares))
}

// Transaction is one history entry.
// Amount is the deposit, the buy cost (fee included) or the sell proceeds
// (fee deducted).
type Transaction struct {
	ID         uuid.UUID        `json:"id"`
	Type       TxType           `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	Amount     decimal.Decimal  `json:"amount"`
	Symbol     string           `json:"symbol,omitempty"`
	Shares     int64            `json:"shares,omitempty"`
	Price      decimal.Decimal  `json:"price"`
	Fee        decimal.Decimal  `json:"fee"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	PnLPercent *decimal.Decimal `json:"pnl_percent,omitempty"`
}

// State is the whole persisted ledger
type State struct {
	Version   int             `json:"version"`
	Cash      decimal.Decimal `json:"cash"`
	Positions []Position      `json:"positions"`
	History   []Transaction   `json:"history"`
}

// NewState returns an empty ledger state
func NewState() *State {
	return &State{
		Version:   SchemaVersion,
		Cash:      decimal.Zero,
		Positions: []Position{},
		History:   []Transaction{},
	}
}

// Clone deep-copies the state. Decimals are immutable so sharing the
// PnL pointers is safe.
func (s *State) Clone() *State {
	out := &State{
		Version:   s.Version,
		Cash:      s.Cash,
		Positions: make([]Position, len(s.Positions)),
		History:   make([]Transaction, len(s.History)),
	}
	copy(out.Positions, s.Positions)
	copy(out.History, s.History)
	return out
}

// Snapshot makes a loaded State usable wherever a live ledger is
func (s *State) Snapshot() *State {
	return s.Clone()
}

func (s *State) position(symbol string) (int, bool) {
	for i, p := range s.Positions {
		if p.Symbol == symbol {
			return i, true
		}
	}
	return -1, false
}

// Store persists the whole ledger state
type Store interface {
	// Load returns the stored state, or an empty state when nothing is stored
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
}

// SellResult is the P&L summary of a sale
type SellResult struct {
	Symbol          string          `json:"symbol"`
	Shares          int64           `json:"shares"`
	Price           decimal.Decimal `json:"price"`
	Proceeds        decimal.Decimal `json:"proceeds"`
	Fee             decimal.Decimal `json:"fee"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	PnL             decimal.Decimal `json:"pnl"`
	PnLPercent      decimal.Decimal `json:"pnl_percent"`
	RemainingShares int64           `json:"remaining_shares"`
}

// Ledger applies deposits, buys and sells.
// ⭐ SSOT: 모든 변경은 mutex 안에서 clone → 저장 → 교체 (저장 실패 시 메모리 상태 유지)
type Ledger struct {
	mu      sync.Mutex
	state   *State
	store   Store
	buyFee  decimal.Decimal
	sellFee decimal.Decimal
	now     func() time.Time
	logger  *logger.Logger
}

// Open loads the ledger from store
func Open(ctx context.Context, store Store, fees strategyconfig.Fees, log *logger.Logger) (*Ledger, error) {
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if state == nil {
		state = NewState()
	}
	return &Ledger{
		state:   state,
		store:   store,
		buyFee:  decimal.NewFromFloat(fees.BuyRate),
		sellFee: decimal.NewFromFloat(fees.SellRate),
		now:     time.Now,
		logger:  log.WithComponent("ledger"),
	}, nil
}

// mutate runs fn on a copy and swaps it in only after it is persisted
func (l *Ledger) mutate(ctx context.Context, fn func(s *State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := l.store.Save(ctx, next); err != nil {
		l.logger.WithError(err).Error("ledger persist failed, change rolled back")
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.state = next
	return nil
}

// Deposit adds cash
func (l *Ledger) Deposit(ctx context.Context, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: deposit must be positive, got %s", contracts.ErrInvalidAmount, amount)
	}

	tx := Transaction{
		ID:        uuid.New(),
		Type:      TxDeposit,
		Timestamp: l.now(),
		Amount:    amount,
	}
	err := l.mutate(ctx, func(s *State) error {
		s.Cash = s.Cash.Add(amount)
		s.History = append(s.History, tx)
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	l.logger.WithFields(map[string]interface{}{"amount": amount.String()}).Info("deposit recorded")
	return tx, nil
}

// Buy opens or tops up a position. Cost = shares x price x (1 + buy fee).
func (l *Ledger) Buy(ctx context.Context, symbol string, shares int64, price decimal.Decimal) (Transaction, error) {
	symbol = strategyconfig.NormalizeSymbol(symbol)
	if err := validateTrade(symbol, shares, price); err != nil {
		return Transaction{}, err
	}

	gross := price.Mul(decimal.NewFromInt(shares))
	fee := gross.Mul(l.buyFee)
	cost := gross.Add(fee)
	now := l.now()

	tx := Transaction{
		ID:        uuid.New(),
		Type:      TxBuy,
		Timestamp: now,
		Amount:    cost,
		Symbol:    symbol,
		Shares:    shares,
		Price:     price,
		Fee:       fee,
	}
	err := l.mutate(ctx, func(s *State) error {
		if cost.GreaterThan(s.Cash) {
			return fmt.Errorf("%w: need %s, have %s", contracts.ErrInsufficientFunds, cost.StringFixed(2), s.Cash.StringFixed(2))
		}
		s.Cash = s.Cash.Sub(cost)

		if i, ok := s.position(symbol); ok {
			p := s.Positions[i]
			total := p.Shares + shares
			p.AvgCost = p.CostBasis().Add(gross).Div(decimal.NewFromInt(total))
			p.Shares = total
			s.Positions[i] = p
		} else {
			s.Positions = append(s.Positions, Position{
				Symbol:   symbol,
				Shares:   shares,
				AvgCost:  price,
				OpenedAt: now,
			})
		}
		s.History = append(s.History, tx)
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	l.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"shares": shares,
		"price":  price.String(),
		"cost":   cost.StringFixed(2),
	}).Info("buy recorded")
	return tx, nil
}

// Sell reduces a position. Proceeds = shares x price x (1 - sell fee);
// pnl = proceeds - shares x avgCost. The position is removed at zero shares.
func (l *Ledger) Sell(ctx context.Context, symbol string, shares int64, price decimal.Decimal) (SellResult, error) {
	symbol = strategyconfig.NormalizeSymbol(symbol)
	if err := validateTrade(symbol, shares, price); err != nil {
		return SellResult{}, err
	}

	var result SellResult
	err := l.mutate(ctx, func(s *State) error {
		i, ok := s.position(symbol)
		if !ok {
			return fmt.Errorf("%w: %s", contracts.ErrNoPosition, symbol)
		}
		p := s.Positions[i]
		if shares > p.Shares {
			return fmt.Errorf("%w: selling %d of %d %s", contracts.ErrInsufficientShares, shares, p.Shares, symbol)
		}

		gross := price.Mul(decimal.NewFromInt(shares))
		fee := gross.Mul(l.sellFee)
		proceeds := gross.Sub(fee)
		basis := p.AvgCost.Mul(decimal.NewFromInt(shares))
		pnl := proceeds.Sub(basis)
		pnlPct := decimal.Zero
		if basis.IsPositive() {
			pnlPct = pnl.Div(basis).Mul(decimal.NewFromInt(100))
		}

		s.Cash = s.Cash.Add(proceeds)
		p.Shares -= shares
		if p.Shares == 0 {
			s.Positions = append(s.Positions[:i], s.Positions[i+1:]...)
		} else {
			s.Positions[i] = p
		}

		s.History = append(s.History, Transaction{
			ID:         uuid.New(),
			Type:       TxSell,
			Timestamp:  l.now(),
			Amount:     proceeds,
			Symbol:     symbol,
			Shares:     shares,
			Price:      price,
			Fee:        fee,
			PnL:        &pnl,
			PnLPercent: &pnlPct,
		})

		result = SellResult{
			Symbol:          symbol,
			Shares:          shares,
			Price:           price,
			Proceeds:        proceeds,
			Fee:             fee,
			CostBasis:       basis,
			PnL:             pnl,
			PnLPercent:      pnlPct,
			RemainingShares: p.Shares,
		}
		return nil
	})
	if err != nil {
		return SellResult{}, err
	}

	l.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"shares": shares,
		"price":  price.String(),
		"pnl":    result.PnL.StringFixed(2),
	}).Info("sell recorded")
	return result, nil
}

func validateTrade(symbol string, shares int64, price decimal.Decimal) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", contracts.ErrInvalidAmount)
	}
	if shares <= 0 {
		return fmt.Errorf("%w: shares must be positive, got %d", contracts.ErrInvalidAmount, shares)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", contracts.ErrInvalidAmount, price)
	}
	return nil
}

// Snapshot returns a deep copy of the current state
func (l *Ledger) Snapshot() *State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// Cash returns the cash balance
func (l *Ledger) Cash() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Cash
}

// Position returns the open position for symbol
func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.state.position(strategyconfig.NormalizeSymbol(symbol))
	if !ok {
		return Position{}, false
	}
	return l.state.Positions[i], true
}

// Positions returns a copy of every open position
func (l *Ledger) Positions() []Position {
	return l.Snapshot().Positions
}

// History returns a copy of the transaction history, oldest first
func (l *Ledger) History() []Transaction {
	return l.Snapshot().History
}
