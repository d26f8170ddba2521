package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nicebigrose/stock-analysis-system/internal/portfolio"
)

var (
	riskDays     int
	historyLimit int
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Simulated portfolio ledger",
	Long: `Manages the simulated cash-and-positions ledger.

Subcommands:
  show      - marked-to-market holdings and performance
  deposit   - add cash
  buy       - buy shares at a price
  sell      - sell shares at a price
  suggest   - rebalancing suggestions
  risk      - risk metrics of the held symbols
  history   - transaction log

Example:
  go run ./cmd/screener portfolio deposit 100000000
  go run ./cmd/screener portfolio buy FPT 100 95000
  go run ./cmd/screener portfolio sell FPT 50 99000`,
}

var (
	portfolioShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Holdings and performance",
		RunE:  runPortfolioShow,
	}

	portfolioDepositCmd = &cobra.Command{
		Use:   "deposit AMOUNT",
		Short: "Add cash",
		Args:  cobra.ExactArgs(1),
		RunE:  runPortfolioDeposit,
	}

	portfolioBuyCmd = &cobra.Command{
		Use:   "buy SYMBOL SHARES PRICE",
		Short: "Buy shares",
		Args:  cobra.ExactArgs(3),
		RunE:  runPortfolioTrade,
	}

	portfolioSellCmd = &cobra.Command{
		Use:   "sell SYMBOL SHARES PRICE",
		Short: "Sell shares",
		Args:  cobra.ExactArgs(3),
		RunE:  runPortfolioTrade,
	}

	portfolioSuggestCmd = &cobra.Command{
		Use:   "suggest",
		Short: "Rebalancing suggestions",
		RunE:  runPortfolioSuggest,
	}

	portfolioRiskCmd = &cobra.Command{
		Use:   "risk",
		Short: "Risk metrics of the held symbols",
		RunE:  runPortfolioRisk,
	}

	portfolioHistoryCmd = &cobra.Command{
		Use:   "history",
		Short: "Transaction log, newest first",
		RunE:  runPortfolioHistory,
	}
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioShowCmd)
	portfolioCmd.AddCommand(portfolioDepositCmd)
	portfolioCmd.AddCommand(portfolioBuyCmd)
	portfolioCmd.AddCommand(portfolioSellCmd)
	portfolioCmd.AddCommand(portfolioSuggestCmd)
	portfolioCmd.AddCommand(portfolioRiskCmd)
	portfolioCmd.AddCommand(portfolioHistoryCmd)

	portfolioRiskCmd.Flags().IntVar(&riskDays, "days", 365, "lookback in days")
	portfolioHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of transactions (0 = all)")
}

// withLedger wires the app, opens the ledger and runs fn
func withLedger(fn func(ctx context.Context, a *app, l *portfolio.Ledger) error) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	l, err := a.openLedger(ctx)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	return fn(ctx, a, l)
}

func runPortfolioShow(cmd *cobra.Command, args []string) error {
	return withLedger(func(ctx context.Context, a *app, l *portfolio.Ledger) error {
		val, err := a.valuer.CurrentValue(ctx, l)
		if err != nil {
			return err
		}
		perf, err := a.valuer.Performance(ctx, l)
		if err != nil {
			return err
		}

		if jsonOutput {
			return PrintJSON(map[string]interface{}{"valuation": val, "performance": perf})
		}

		PrintHeader("Portfolio")
		widths := []int{6, 8, 12, 12, 14, 14, 8, 7}
		PrintTableHeader([]string{"SYMBOL", "SHARES", "AVG_COST", "PRICE", "VALUE", "PNL", "PNL%", "WEIGHT"}, widths)
		for _, p := range val.Positions {
			price := formatMoney(p.CurrentPrice)
			if p.PriceUnavailable {
				price = "N/A"
			}
			PrintTableRow([]string{
				p.Symbol,
				strconv.FormatInt(p.Shares, 10),
				formatMoney(p.AvgCost),
				price,
				formatMoney(p.Value),
				formatMoney(p.PnL),
				formatPercent(p.PnLPercent),
				formatFloat(p.Weight, 1) + "%",
			}, widths)
		}

		fmt.Println()
		PrintKeyValue("Cash", fmt.Sprintf("%s (%.1f%%)", formatMoney(val.Cash), val.CashPercent), 14)
		PrintKeyValue("Positions", formatMoney(val.PositionsValue), 14)
		PrintKeyValue("Total value", formatMoney(val.TotalValue), 14)
		PrintSeparator()
		PrintKeyValue("Deposits", formatMoney(perf.TotalDeposits), 14)
		PrintKeyValue("Total P&L", fmt.Sprintf("%s (%s)", formatMoney(perf.TotalPnL), formatPercent(perf.TotalPnLPercent)), 14)
		PrintKeyValue("Realized", formatMoney(perf.RealizedPnL), 14)
		PrintKeyValue("Unrealized", formatMoney(perf.UnrealizedPnL), 14)
		return nil
	})
}

// parseAmount parses a decimal argument; the ledger validates the sign
func parseAmount(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number: %q", name, s)
	}
	return d, nil
}

func runPortfolioDeposit(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount("amount", args[0])
	if err != nil {
		return err
	}

	return withLedger(func(ctx context.Context, a *app, l *portfolio.Ledger) error {
		tx, err := l.Deposit(ctx, amount)
		if err != nil {
			return err
		}
		if jsonOutput {
			return PrintJSON(tx)
		}
		PrintSuccess(fmt.Sprintf("Deposited %s, cash %s", formatMoney(tx.Amount), formatMoney(l.Cash())))
		return nil
	})
}

func runPortfolioTrade(cmd *cobra.Command, args []string) error {
	shares, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("shares must be an integer: %q", args[1])
	}
	price, err := parseAmount("price", args[2])
	if err != nil {
		return err
	}

	return withLedger(func(ctx context.Context, a *app, l *portfolio.Ledger) error {
		if cmd.Name() == "buy" {
			tx, err := l.Buy(ctx, args[0], shares, price)
			if err != nil {
				return err
			}
			if jsonOutput {
				return PrintJSON(tx)
			}
			PrintSuccess(fmt.Sprintf("Bought %d %s at %s (fee %s), cash %s",
				tx.Shares, tx.Symbol, formatMoney(tx.Price), formatMoney(tx.Fee), formatMoney(l.Cash())))
			return nil
		}

		res, err := l.Sell(ctx, args[0], shares, price)
		if err != nil {
			return err
		}
		if jsonOutput {
			return PrintJSON(res)
		}
		PrintSuccess(fmt.Sprintf("Sold %d %s at %s, P&L %s (%s%%), %d left",
			res.Shares, res.Symbol, formatMoney(res.Price), formatMoney(res.PnL),
			res.PnLPercent.StringFixed(2), res.RemainingShares))
		return nil
	})
}

func runPortfolioSuggest(cmd *cobra.Command, args []string) error {
	return withLedger(func(ctx context.Context, a *app, l *portfolio.Ledger) error {
		val, err := a.valuer.CurrentValue(ctx, l)
		if err != nil {
			return err
		}
		suggestions := a.advisor.Suggest(val, a.holder.Config().Portfolio)

		if jsonOutput {
			return PrintJSON(suggestions)
		}

		PrintHeader("Rebalancing suggestions")
		if len(suggestions) == 0 {
			PrintSuccess("Portfolio is within policy")
			return nil
		}
		for _, s := range suggestions {
			fmt.Printf("[%s] %s\n", s.Type, s.Message)
			fmt.Printf("   → %s\n", s.Action)
		}
		return nil
	})
}

func runPortfolioRisk(cmd *cobra.Command, args []string) error {
	return withLedger(func(ctx context.Context, a *app, l *portfolio.Ledger) error {
		report, err := a.valuer.RiskMetrics(ctx, l, time.Duration(riskDays)*24*time.Hour)
		if err != nil {
			return err
		}

		if jsonOutput {
			return PrintJSON(report)
		}

		m := report.Metrics
		PrintHeader(fmt.Sprintf("Risk over %d days", riskDays))
		PrintKeyValue("Symbols", fmt.Sprint(report.Symbols), 18)
		PrintKeyValue("Observations", strconv.Itoa(m.Observations), 18)
		PrintKeyValue("Total return", formatPercent(m.TotalReturn), 18)
		PrintKeyValue("Annualized return", formatPercent(m.AnnualizedReturn), 18)
		PrintKeyValue("Volatility", formatFloat(m.Volatility, 2)+"%", 18)
		PrintKeyValue("Sharpe", formatFloat(m.Sharpe, 2), 18)
		PrintKeyValue("Sortino", formatFloat(m.Sortino, 2), 18)
		PrintKeyValue("Calmar", formatFloat(m.Calmar, 2), 18)
		PrintKeyValue("Max drawdown", formatFloat(m.MaxDrawdown, 2)+"%", 18)
		PrintKeyValue("VaR 95%", formatFloat(m.VaR95, 2)+"%", 18)
		PrintKeyValue("CVaR 95%", formatFloat(m.CVaR95, 2)+"%", 18)
		PrintSeparator()
		PrintKeyValue("Rating", fmt.Sprintf("%s (%d/%d)", report.Rating.Grade, report.Rating.Score, report.Rating.MaxScore), 18)
		return nil
	})
}

func runPortfolioHistory(cmd *cobra.Command, args []string) error {
	return withLedger(func(ctx context.Context, a *app, l *portfolio.Ledger) error {
		history := l.History()
		limit := historyLimit
		if limit <= 0 || limit > len(history) {
			limit = len(history)
		}

		out := make([]portfolio.Transaction, 0, limit)
		for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, history[i])
		}

		if jsonOutput {
			return PrintJSON(out)
		}

		PrintHeader("Transactions")
		widths := []int{16, 7, 6, 8, 12, 14, 12}
		PrintTableHeader([]string{"TIME", "TYPE", "SYMBOL", "SHARES", "PRICE", "AMOUNT", "PNL"}, widths)
		for _, tx := range out {
			pnl := ""
			if tx.PnL != nil {
				pnl = formatMoney(*tx.PnL)
			}
			shares := ""
			if tx.Shares > 0 {
				shares = strconv.FormatInt(tx.Shares, 10)
			}
			PrintTableRow([]string{
				tx.Timestamp.Local().Format("2006-01-02 15:04"),
				string(tx.Type),
				tx.Symbol,
				shares,
				formatMoney(tx.Price),
				formatMoney(tx.Amount),
				pnl,
			}, widths)
		}
		return nil
	})
}
