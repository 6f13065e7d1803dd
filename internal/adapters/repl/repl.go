package repl

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"clic-tools/internal/app"
)

// Run starts the interactive terminal loop. It authenticates the operator,
// then dispatches slash commands deterministically; /populate enters the
// guided rack population wizard.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader) {
	fmt.Println("Clic-Tools — Warehouse Terminal")
	fmt.Println(strings.Repeat("-", 70))

	session := loginLoop(ctx, svc, reader)
	if session == nil {
		return
	}
	fmt.Printf("Signed in as %s (%s).\n", session.DisplayName, session.Role)
	fmt.Println("Type /populate to start a guided rack population run, or /help for commands.")

	errExit := fmt.Errorf("exit")

	dispatchSlash := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "tree", "locations":
			result, err := svc.ListLocations(ctx)
			if err != nil {
				return err
			}
			printLocationTree(result.Locations)

		case "racks":
			result, err := svc.ListRacks(ctx)
			if err != nil {
				return err
			}
			printLocations("RACKS", result.Locations)

		case "products":
			result, err := svc.ListProducts(ctx)
			if err != nil {
				return err
			}
			printProducts(result)

		case "populate", "wizard":
			runPopulationWizard(ctx, reader, svc, session)

		case "resume":
			runResume(ctx, reader, svc, session)

		case "abandon":
			if _, err := svc.AbandonWizard(ctx, session.UserID); err != nil {
				return err
			}
			fmt.Println("Session abandoned. Locks released.")

		case "prorate":
			if len(args) < 1 {
				fmt.Println("Usage: /prorate <invoice-xml-file>")
				return nil
			}
			handleProrate(ctx, svc, args[0])

		case "help", "h":
			printHelp()

		case "exit", "quit", "e", "q":
			return errExit

		default:
			fmt.Printf("Unknown command: /%s  (type /help for all commands)\n", cmd)
		}
		return nil
	}

	for {
		fmt.Print("\n> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !strings.HasPrefix(input, "/") {
			fmt.Println("Commands start with /  — type /help.")
			continue
		}
		if err := dispatchSlash(input); err != nil {
			if err == errExit {
				fmt.Println("Goodbye!")
				break
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// loginLoop prompts for credentials until authentication succeeds or the
// operator gives up with an empty username.
func loginLoop(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader) *app.UserSession {
	for {
		fmt.Print("Username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		username = strings.TrimSpace(username)
		if username == "" {
			return nil
		}
		fmt.Print("Password: ")
		password, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		password = strings.TrimSpace(password)

		session, err := svc.AuthenticateUser(ctx, username, password)
		if err != nil {
			fmt.Println("Invalid username or password. Try again, or press Enter to quit.")
			continue
		}
		return session
	}
}

// handleProrate reads a supplier invoice XML file and prints the loaded costs.
func handleProrate(ctx context.Context, svc app.ApplicationService, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Cannot open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	result, err := svc.ProrateInvoice(ctx, f)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printProration(result)
}
