package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clic-tools/internal/app"
	"clic-tools/internal/core"
)

// runPopulationWizard runs an interactive guided rack population session:
// pick a rack, pick its levels, then walk the leaf locations scanning codes.
func runPopulationWizard(ctx context.Context, reader *bufio.Reader, svc app.ApplicationService, session *app.UserSession) {
	loaded, err := svc.LoadWizard(ctx, session.UserID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if loaded.View.State == core.WizardResume {
		fmt.Println("You have an unfinished population run.")
		fmt.Print("Resume it? (y = resume, n = abandon and start fresh): ")
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(strings.ToLower(choice))
		if choice == "y" || choice == "yes" {
			runResume(ctx, reader, svc, session)
			return
		}
		if _, err := svc.AbandonWizard(ctx, session.UserID); err != nil {
			fmt.Printf("Error abandoning session: %v\n", err)
			return
		}
		fmt.Println("Previous session abandoned. Locks released.")
	}

	racks, err := svc.ListRacks(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(racks.Locations) == 0 {
		fmt.Println("No racks defined. An admin must create the rack structure first.")
		return
	}
	printLocations("RACKS", racks.Locations)

	fmt.Print("Rack id: ")
	rackRaw, _ := reader.ReadString('\n')
	rackID, err := strconv.Atoi(strings.TrimSpace(rackRaw))
	if err != nil {
		fmt.Println("Invalid rack id.")
		return
	}

	levels, err := svc.ListLevels(ctx, rackID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(levels.Locations) == 0 {
		fmt.Println("That rack has no levels.")
		return
	}
	printLevelSelection(levels.Locations)

	fmt.Print("Level ids (comma separated, 'all' for every unlocked level): ")
	levelRaw, _ := reader.ReadString('\n')
	levelIDs, err := parseLevelSelection(strings.TrimSpace(levelRaw), levels.Locations)
	if err != nil {
		fmt.Printf("%v\n", err)
		return
	}

	result, err := svc.StartWizard(ctx, app.StartWizardRequest{
		UserID:   session.UserID,
		RackID:   rackID,
		LevelIDs: levelIDs,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(result.View.Conflicts) > 0 {
		printConflicts(result.View.Conflicts)
		return
	}
	scanLoop(ctx, reader, svc, session, result.View)
}

// runResume continues a stored session at its saved position.
func runResume(ctx context.Context, reader *bufio.Reader, svc app.ApplicationService, session *app.UserSession) {
	result, err := svc.ResumeWizard(ctx, session.UserID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNoActiveSession):
			fmt.Println("No session to resume. Use /populate to start one.")
		case errors.Is(err, core.ErrSessionStale):
			fmt.Println("Your stored session no longer matches the warehouse structure.")
			fmt.Println("Use /abandon to discard it and release its locks.")
		default:
			fmt.Printf("Error: %v\n", err)
		}
		return
	}
	if result.View.State == core.WizardFinished {
		fmt.Println("That run was already complete. Session closed, locks released.")
		return
	}
	fmt.Printf("Resuming at position %d of %d.\n",
		result.View.Session.CurrentIndex+1, len(result.View.Leaves))
	scanLoop(ctx, reader, svc, session, result.View)
}

// scanLoop walks the leaf list. Each prompt accepts a product code, an empty
// line or "skip" to pass, "back" to step backwards, "finish" to close the
// run, and "pause" to leave the session resumable.
func scanLoop(ctx context.Context, reader *bufio.Reader, svc app.ApplicationService, session *app.UserSession, view *core.WizardView) {
	fmt.Println()
	fmt.Println("Scan a product code for each location.")
	fmt.Println("Commands: [Enter]/skip = skip, back = previous, finish = end run, pause = save and exit.")

	for view.State == core.WizardPopulating {
		printCurrentLeaf(view)

		fmt.Print("scan> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nSession saved. Use /resume to continue.")
			return
		}
		input = strings.TrimSpace(input)

		var result *app.WizardResult
		switch strings.ToLower(input) {
		case "pause", "quit", "exit":
			fmt.Println("Session saved. Use /resume to continue; locks stay held.")
			return
		case "back":
			result, err = svc.StepBack(ctx, session.UserID)
		case "finish", "done":
			result, err = svc.FinishWizard(ctx, session.UserID)
		case "", "skip":
			result, err = svc.AssignItem(ctx, app.AssignItemRequest{UserID: session.UserID})
		default:
			result, err = svc.AssignItem(ctx, app.AssignItemRequest{
				UserID:      session.UserID,
				ProductCode: strings.ToUpper(input),
			})
		}
		if err != nil {
			if errors.Is(err, core.ErrProductNotFound) {
				fmt.Println("Unknown product code. Rescan or press Enter to skip.")
				continue
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}

		if result.View.LastAssignment != nil {
			a := result.View.LastAssignment
			fmt.Printf("  ✓ %s (%s) → %s\n", a.ProductCode, a.ProductDescription, a.LocationCode)
		}
		view = result.View
	}

	if view.State == core.WizardFinished {
		fmt.Println("\nRun complete. Session closed, locks released.")
	}
}

// parseLevelSelection turns the operator's input into level ids. "all"
// selects every level not locked by someone else.
func parseLevelSelection(input string, levels []core.Location) ([]int, error) {
	if strings.ToLower(input) == "all" {
		var ids []int
		for _, lvl := range levels {
			if !lvl.IsLocked {
				ids = append(ids, lvl.ID)
			}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("every level of this rack is locked")
		}
		return ids, nil
	}

	var ids []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid level id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no levels selected")
	}
	return ids, nil
}
