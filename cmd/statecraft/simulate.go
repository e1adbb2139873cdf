package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/statecraft/internal/engine"
)

func newSimulateCmd() *cobra.Command {
	var (
		turns  int
		events int
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a number of turns headless and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			if turns <= 0 {
				return fmt.Errorf("--turns must be positive, got %d", turns)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			infoColor := color.New(color.FgYellow)
			if !quiet {
				titleColor.Println("\n╭───────────────────────────╮")
				titleColor.Println("│  Statecraft               │")
				titleColor.Println("│  Headless Simulation      │")
				titleColor.Println("╰───────────────────────────╯")
				fmt.Println()
			}

			sim := engine.NewSimulation(cfg)
			if err := sim.Seed(cfg); err != nil {
				return err
			}
			eng := engine.NewEngine(cfg.TurnInterval)
			eng.OnTurn = func(turn int) { sim.EndTurn(turn) }

			if !quiet {
				infoColor.Printf("Playing %d turns...\n\n", turns)
			}
			for range turns {
				eng.Step()
			}

			snap := sim.Snapshot()
			printWorld(snap.Stats)
			printNations(snap.Nations)
			if events > 0 {
				var recent []engine.Event
				sim.View(func() { recent = sim.Journal.Recent(events) })
				printEvents(recent)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&turns, "turns", "t", 100, "Number of turns to play")
	cmd.Flags().IntVarP(&events, "events", "e", 10, "Number of recent events to print")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	return cmd
}

func printWorld(stats engine.SimStats) {
	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Printf("Turn %d, %s phase\n", stats.Turn, stats.Cycle)
	fmt.Printf("  Regions:     %d\n", stats.Regions)
	fmt.Printf("  Population:  %s\n", humanize.Comma(int64(stats.TotalPopulation)))
	fmt.Printf("  Wealth:      %s\n", humanize.Comma(int64(stats.TotalWealth)))
	fmt.Printf("  Production:  %s\n", humanize.Comma(int64(stats.TotalProduction)))
	fmt.Printf("  Inflation:   %.2f%%\n", stats.Inflation*100)
	fmt.Printf("  Avg unrest:  %.3f\n\n", stats.AvgUnrest)
}

func printNations(nations []engine.NationStats) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Nation", "Regions", "Wealth", "Treasury", "GDP", "Growth", "Stability", "Unrest", "Policies"}),
	)
	for _, n := range nations {
		table.Append([]string{
			n.Name,
			strconv.Itoa(n.Regions),
			humanize.Comma(int64(n.TotalWealth)),
			humanize.Comma(int64(n.Treasury)),
			humanize.CommafWithDigits(n.GDP, 1),
			fmt.Sprintf("%+.1f%%", n.GDPGrowth*100),
			fmt.Sprintf("%.2f", n.Stability),
			fmt.Sprintf("%.2f", n.Unrest),
			strconv.Itoa(n.ActivePolicies),
		})
	}
	table.Render()
	fmt.Println()
}

func printEvents(events []engine.Event) {
	if len(events) == 0 {
		return
	}
	infoColor := color.New(color.FgCyan)
	infoColor.Println("Recent events:")
	for _, e := range events {
		fmt.Printf("  [%4d] %-12s %s\n", e.Turn, e.Category, e.Description)
	}
}
