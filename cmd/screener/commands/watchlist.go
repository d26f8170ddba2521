package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// watchlistCmd represents the watchlist command
var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Show or edit the watchlist",
}

var (
	watchlistListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print the watchlist",
		RunE:  runWatchlistList,
	}

	watchlistAddCmd = &cobra.Command{
		Use:   "add SYMBOL...",
		Short: "Add symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatchlistEdit,
	}

	watchlistRemoveCmd = &cobra.Command{
		Use:   "remove SYMBOL...",
		Short: "Remove symbols",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatchlistEdit,
	}
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	symbols := a.holder.Watchlist()
	if jsonOutput {
		return PrintJSON(symbols)
	}
	fmt.Printf("Watchlist (%d): %s\n", len(symbols), strings.Join(symbols, ", "))
	return nil
}

func runWatchlistEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var changed []string
	verb := "Added"
	if cmd.Name() == "add" {
		changed = a.holder.Add(args...)
	} else {
		changed = a.holder.Remove(args...)
		verb = "Removed"
	}

	if len(changed) == 0 {
		PrintInfo("Watchlist unchanged")
		return nil
	}
	if err := a.holder.Save(); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	PrintSuccess(fmt.Sprintf("%s %s, %d symbols", verb, strings.Join(changed, ", "), len(a.holder.Watchlist())))
	return nil
}
