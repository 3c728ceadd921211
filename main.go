package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
)

func printBanner(title string) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 60))
}

func printUsage() {
	fmt.Println("Usage: raclassify <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  1, phase1   Collect complaints from the public portal")
	fmt.Println("  2, phase2   Discover themes and propose a taxonomy")
	fmt.Println("  4, phase4   Classify all complaints with the curated taxonomy")
	fmt.Println("  all         Run the full pipeline with pauses between phases")
	fmt.Println("  usage       Show accumulated API usage (--details for per-session)")
	fmt.Println("  watch       Run the auto-collect scheduler in the foreground")
	fmt.Println()
	fmt.Println("Phase 3 is manual: curate the proposed taxonomy before phase 4.")
}

func waitForEnter(prompt string) {
	fmt.Printf("\n%s", prompt)
	bufio.NewReader(os.Stdin).ReadString('\n')
}

func runAll(cfg Config) error {
	if err := runPhase1(cfg); err != nil {
		return err
	}
	waitForEnter("Press Enter to continue to theme discovery... ")

	if err := runPhase2(cfg); err != nil {
		return err
	}

	printBanner("PHASE 3: HUMAN CURATION (MANUAL)")
	fmt.Printf("Review %s and save the curated taxonomy as %s.\n",
		cfg.ProposedTaxonomyFile(), cfg.CuratedTaxonomyFile())
	waitForEnter("Press Enter once the curated taxonomy is saved... ")

	return runPhase4(cfg)
}

func runUsageReport(cfg Config, details bool) {
	tracker := NewUsageTracker(cfg.UsageLogFile)
	sessions := tracker.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No API usage recorded yet.")
		return
	}
	if details {
		for i := range sessions {
			fmt.Print(FormatSessionUsage(&sessions[i], true))
		}
	}
	fmt.Print(FormatTotalUsage(tracker.TotalUsage()))
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := LoadConfig()

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "1", "phase1":
		err = runPhase1(cfg)
	case "2", "phase2":
		err = runPhase2(cfg)
	case "4", "phase4":
		err = runPhase4(cfg)
	case "all":
		err = runAll(cfg)
	case "usage":
		details := cfg.ShowUsageDetails
		for _, arg := range os.Args[2:] {
			if arg == "--details" {
				details = true
			}
		}
		runUsageReport(cfg, details)
	case "watch":
		StartAutoCollectScheduler(cfg)
		select {}
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Pipeline error: %v", err)
	}
}
