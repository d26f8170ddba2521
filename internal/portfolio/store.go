package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FileStore keeps the ledger in one JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store at path. The directory is created on save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the ledger file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger. A missing file is an empty ledger; a file without
// a version field is migrated from the v0 layout.
func (s *FileStore) Load(_ context.Context) (*State, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
	}
	return Decode(raw)
}

// Decode parses any supported ledger layout into the current schema
func Decode(raw []byte) (*State, error) {
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}

	switch {
	case header.Version == nil:
		return migrateV0(raw)
	case *header.Version == SchemaVersion:
		state := NewState()
		if err := json.Unmarshal(raw, state); err != nil {
			return nil, fmt.Errorf("parse ledger v%d: %w", SchemaVersion, err)
		}
		if state.Positions == nil {
			state.Positions = []Position{}
		}
		if state.History == nil {
			state.History = []Transaction{}
		}
		return state, nil
	default:
		return nil, fmt.Errorf("unsupported ledger version %d", *header.Version)
	}
}

// Save writes to a temp file in the same directory, fsyncs it, then
// renames it over the target
func (s *FileStore) Save(_ context.Context, state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	committed = true

	// rename durability; best effort where directories cannot be synced
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// v0 is the unversioned layout: float money, avg_price, buy_date/date
type v0Ledger struct {
	Cash      decimal.Decimal `json:"cash"`
	Positions []struct {
		Symbol   string          `json:"symbol"`
		Shares   float64         `json:"shares"`
		AvgPrice decimal.Decimal `json:"avg_price"`
		BuyDate  string          `json:"buy_date"`
		Date     string          `json:"date"`
	} `json:"positions"`
	History []struct {
		Date       string           `json:"date"`
		Type       string           `json:"type"`
		Amount     decimal.Decimal  `json:"amount"`
		Symbol     string           `json:"symbol"`
		Shares     float64          `json:"shares"`
		Price      decimal.Decimal  `json:"price"`
		Total      decimal.Decimal  `json:"total"`
		PnL        *decimal.Decimal `json:"pnl"`
		PnLPercent *decimal.Decimal `json:"pnl_percent"`
	} `json:"history"`
}

func migrateV0(raw []byte) (*State, error) {
	var old v0Ledger
	if err := json.Unmarshal(raw, &old); err != nil {
		return nil, fmt.Errorf("parse ledger v0: %w", err)
	}

	state := NewState()
	state.Cash = old.Cash

	for _, p := range old.Positions {
		date := p.BuyDate
		if date == "" {
			date = p.Date
		}
		state.Positions = append(state.Positions, Position{
			Symbol:   p.Symbol,
			Shares:   int64(math.Round(p.Shares)),
			AvgCost:  p.AvgPrice,
			OpenedAt: parseV0Time(date),
		})
	}

	for _, h := range old.History {
		tx := Transaction{
			ID:         uuid.New(),
			Type:       TxType(h.Type),
			Timestamp:  parseV0Time(h.Date),
			Symbol:     h.Symbol,
			Shares:     int64(math.Round(h.Shares)),
			Price:      h.Price,
			PnL:        h.PnL,
			PnLPercent: h.PnLPercent,
		}
		gross := h.Price.Mul(decimal.NewFromFloat(h.Shares))
		switch tx.Type {
		case TxDeposit:
			tx.Amount = h.Amount
		case TxBuy:
			tx.Amount = h.Total
			tx.Fee = h.Total.Sub(gross)
		case TxSell:
			tx.Amount = h.Total
			tx.Fee = gross.Sub(h.Total)
		default:
			return nil, fmt.Errorf("parse ledger v0: unknown transaction type %q", h.Type)
		}
		state.History = append(state.History, tx)
	}
	return state, nil
}

// v0 timestamps are naive local ISO-8601, with or without fractions
var v0Layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseV0Time(s string) time.Time {
	for _, layout := range v0Layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
