package repl

import (
	"fmt"
	"strings"

	"clic-tools/internal/app"
	"clic-tools/internal/core"
)

// printLocationTree renders the hierarchy with indentation and lock markers.
func printLocationTree(locations []core.Location) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("  WAREHOUSE STRUCTURE")
	fmt.Println(strings.Repeat("=", 72))
	if len(locations) == 0 {
		fmt.Println("  No locations defined.")
		fmt.Println(strings.Repeat("=", 72))
		return
	}

	children := make(map[int][]core.Location)
	var roots []core.Location
	for _, loc := range locations {
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
			marker = fmt.Sprintf("  [locked by %s]", *loc.LockedBy)
		}
		fmt.Printf("  %s%-12s %s%s\n", strings.Repeat("  ", depth), loc.Code, loc.Name, marker)
		for _, child := range children[loc.ID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	fmt.Println(strings.Repeat("=", 72))
}

// printLocations renders a flat id/code/name table under the given title.
func printLocations(title string, locations []core.Location) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %s\n", title)
	fmt.Println(strings.Repeat("=", 62))
	if len(locations) == 0 {
		fmt.Println("  None found.")
		fmt.Println(strings.Repeat("=", 62))
		return
	}
	fmt.Printf("  %-5s %-12s %-30s\n", "ID", "CODE", "NAME")
	fmt.Println(strings.Repeat("-", 62))
	for _, loc := range locations {
		fmt.Printf("  %-5d %-12s %-30s\n", loc.ID, loc.Code, loc.Name)
	}
	fmt.Println(strings.Repeat("=", 62))
}

// printLevelSelection lists a rack's levels with their lock state.
func printLevelSelection(levels []core.Location) {
	fmt.Println()
	fmt.Printf("  %-5s %-12s %-26s %s\n", "ID", "CODE", "NAME", "STATUS")
	fmt.Println(strings.Repeat("-", 62))
	for _, lvl := range levels {
		status := "free"
		if lvl.IsLocked && lvl.LockedBy != nil {
			status = "locked by " + *lvl.LockedBy
		}
		fmt.Printf("  %-5d %-12s %-26s %s\n", lvl.ID, lvl.Code, lvl.Name, status)
	}
	fmt.Println(strings.Repeat("-", 62))
}

// printConflicts explains a refused lock acquisition.
func printConflicts(conflicts []core.Location) {
	fmt.Println()
	fmt.Println("Cannot start: some selected levels are locked by another operator.")
	fmt.Println("Nothing was locked; pick different levels or try again later.")
	fmt.Println(strings.Repeat("-", 62))
	for _, c := range conflicts {
		lockedBy := "unknown"
		if c.LockedBy != nil {
			lockedBy = *c.LockedBy
		}
		fmt.Printf("  %-12s %-26s locked by %s\n", c.Code, c.Name, lockedBy)
	}
	fmt.Println(strings.Repeat("-", 62))
}

// printCurrentLeaf shows the wizard position and the location to populate.
func printCurrentLeaf(view *core.WizardView) {
	if view.Current == nil {
		return
	}
	fmt.Printf("\n[%d/%d] %s — %s\n",
		view.Session.CurrentIndex+1, len(view.Leaves),
		view.Current.Code, view.Current.Name)
}

func printProducts(result *app.ProductListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("  PRODUCT CATALOG")
	fmt.Println(strings.Repeat("=", 72))
	if len(result.Products) == 0 {
		fmt.Println("  No products found.")
		fmt.Println(strings.Repeat("=", 72))
		return
	}
	fmt.Printf("  %-12s %-42s %-6s\n", "CODE", "DESCRIPTION", "UNIT")
	fmt.Println(strings.Repeat("-", 72))
	for _, p := range result.Products {
		fmt.Printf("  %-12s %-42s %-6s\n", p.Code, p.Description, p.Unit)
	}
	fmt.Println(strings.Repeat("=", 72))
}

func printProration(result *app.ProrationResult) {
	inv := result.Invoice
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("  LOADED COSTS — Invoice %s (%s, %s)\n", inv.Number, inv.Supplier, inv.Currency)
	fmt.Printf("  Ancillary total: %s\n", inv.AncillaryTotal().StringFixed(2))
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("  %-5s %-12s %12s %12s %12s %12s\n",
		"LINE", "PRODUCT", "GOODS", "SHARE", "LOADED", "UNIT COST")
	fmt.Println(strings.Repeat("-", 80))
	for _, a := range result.Allocations {
		fmt.Printf("  %-5d %-12s %12s %12s %12s %12s\n",
			a.LineNumber, a.ProductCode,
			a.GoodsValue.StringFixed(2),
			a.AncillaryShare.StringFixed(2),
			a.LoadedValue.StringFixed(2),
			a.LoadedUnitCost.StringFixed(4),
		)
	}
	fmt.Println(strings.Repeat("=", 80))
}

func printHelp() {
	fmt.Println()
	fmt.Println("CLIC-TOOLS WAREHOUSE TERMINAL — COMMANDS")
	fmt.Println(strings.Repeat("=", 62))
	fmt.Println()
	fmt.Println("  STRUCTURE")
	fmt.Println("  /tree                 Full location hierarchy with lock state")
	fmt.Println("  /racks                List racks")
	fmt.Println("  /products             List the product catalog")
	fmt.Println()
	fmt.Println("  GUIDED POPULATION")
	fmt.Println("  /populate             Start a guided rack population run")
	fmt.Println("  /resume               Continue an interrupted run")
	fmt.Println("  /abandon              Discard the stored run, release locks")
	fmt.Println()
	fmt.Println("  COST ASSISTANT")
	fmt.Println("  /prorate <file.xml>   Spread ancillary costs over invoice lines")
	fmt.Println()
	fmt.Println("  SESSION")
	fmt.Println("  /help                 Show this help")
	fmt.Println("  /exit                 Exit")
	fmt.Println(strings.Repeat("=", 62))
}
