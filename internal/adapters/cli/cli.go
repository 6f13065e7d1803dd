package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"clic-tools/internal/app"
	"clic-tools/internal/core"
)

// Run executes a one-shot administrative command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "locks", "l":
		result, err := svc.ListLocations(ctx)
		if err != nil {
			log.Fatalf("Failed to list locations: %v", err)
		}
		printLocks(result)

	case "release-locks", "release":
		if len(args) < 2 {
			log.Fatal("Usage: app release-locks <location-id> [<location-id> ...]")
		}
		ids, err := parseIDs(args[1:])
		if err != nil {
			log.Fatalf("Invalid arguments: %v", err)
		}
		if err := svc.ReleaseLocks(ctx, ids); err != nil {
			log.Fatalf("Release failed: %v", err)
		}
		fmt.Printf("Released lock state on %d location(s).\n", len(ids))

	case "sessions", "s":
		sessions, err := svc.ListSessions(ctx)
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No active wizard sessions.")
			return
		}
		fmt.Printf("%-5s %-8s %-8s %-8s %-20s %s\n", "ID", "USER", "RACK", "INDEX", "UPDATED", "LEVELS")
		for _, ws := range sessions {
			fmt.Printf("%-5d %-8d %-8d %-8d %-20s %v\n",
				ws.ID, ws.UserID, ws.RackID, ws.CurrentIndex,
				ws.UpdatedAt.Format("2006-01-02 15:04"), ws.LevelIDs)
		}

	case "tree", "t":
		result, err := svc.ListLocations(ctx)
		if err != nil {
			log.Fatalf("Failed to list locations: %v", err)
		}
		printTree(result)

	case "clear-session":
		if len(args) < 2 {
			log.Fatal("Usage: app clear-session <user-id>")
		}
		userID, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid user id: %v", err)
		}
		if err := svc.ClearUserSession(ctx, userID); err != nil {
			log.Fatalf("Clear failed: %v", err)
		}
		fmt.Printf("Cleared wizard session for user %d and released its locks.\n", userID)

	case "create-rack":
		if len(args) < 5 {
			log.Fatal("Usage: app create-rack <name> <code> <levels> <bins-per-level>")
		}
		levels, err := strconv.Atoi(args[3])
		if err != nil {
			log.Fatalf("Invalid level count: %v", err)
		}
		bins, err := strconv.Atoi(args[4])
		if err != nil {
			log.Fatalf("Invalid bin count: %v", err)
		}
		result, err := svc.CreateRack(ctx, app.CreateRackRequest{
			Name:   args[1],
			Code:   args[2],
			Levels: levels,
			Bins:   bins,
		})
		if err != nil {
			log.Fatalf("Create failed: %v", err)
		}
		fmt.Printf("Created rack %s (id %d) with %d levels × %d bins.\n",
			result.Rack.Code, result.Rack.ID, levels, bins)

	case "notifications", "notif":
		limit := 20
		if len(args) >= 2 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				limit = n
			}
		}
		notifications, err := svc.ListNotifications(ctx, limit)
		if err != nil {
			log.Fatalf("Failed to list notifications: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(notifications)

	case "prorate":
		if len(args) < 2 {
			log.Fatal("Usage: app prorate <invoice-xml-file>")
		}
		f, err := os.Open(args[1])
		if err != nil {
			log.Fatalf("Cannot open %s: %v", args[1], err)
		}
		defer f.Close()
		result, err := svc.ProrateInvoice(ctx, f)
		if err != nil {
			log.Fatalf("Proration failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result.Allocations)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: locks, release-locks, sessions, clear-session, create-rack, tree, notifications, prorate", args[0])
	}
}

func printTree(result *app.LocationListResult) {
	children := make(map[int][]core.Location)
	var roots []core.Location
	for _, loc := range result.Locations {
		if loc.ParentID == nil {
			roots = append(roots, loc)
		} else {
			children[*loc.ParentID] = append(children[*loc.ParentID], loc)
		}
	}
	var walk func(loc core.Location, depth int)
	walk = func(loc core.Location, depth int) {
		marker := ""
		if loc.IsLocked && loc.LockedBy != nil {
			marker = "  [locked by " + *loc.LockedBy + "]"
		}
		fmt.Printf("%s%-12s %s%s\n", strings.Repeat("  ", depth), loc.Code, loc.Name, marker)
		for _, child := range children[loc.ID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("not a location id: %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printLocks(result *app.LocationListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("  LOCKED LOCATIONS")
	fmt.Println(strings.Repeat("=", 72))
	found := false
	fmt.Printf("  %-5s %-12s %-26s %s\n", "ID", "CODE", "NAME", "LOCKED BY")
	fmt.Println(strings.Repeat("-", 72))
	for _, loc := range result.Locations {
		if !loc.IsLocked {
			continue
		}
		found = true
		lockedBy := ""
		if loc.LockedBy != nil {
			lockedBy = *loc.LockedBy
		}
		if loc.LockedAt != nil {
			lockedBy += " since " + loc.LockedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %-5d %-12s %-26s %s\n", loc.ID, loc.Code, loc.Name, lockedBy)
	}
	if !found {
		fmt.Println("  No locations are locked.")
	}
	fmt.Println(strings.Repeat("=", 72))
}
