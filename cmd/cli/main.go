// Command cli is the operator tool: create users, seed the knowledge
// corpus, and inspect or grant credits without going through the API.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/amirasaad/tradelens/infra/initializer"
	"github.com/amirasaad/tradelens/pkg/app"
	"github.com/amirasaad/tradelens/pkg/config"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	cfg, err := config.Load(".env")
	if err != nil {
		color.Red("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		color.Red("Failed to initialize dependencies: %v", err)
		os.Exit(1)
	}
	a := app.New(deps, cfg)
	ctx := context.Background()

	switch os.Args[1] {
	case "create-user":
		createUser(ctx, a)
	case "seed-knowledge":
		seedKnowledge(ctx, a)
	case "balance":
		showBalance(ctx, a)
	case "grant":
		grantCredits(ctx, a)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: cli <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  create-user <username> <email>         create a user (password prompted)")
	fmt.Println("  seed-knowledge <category> <content>    embed and store a knowledge entry")
	fmt.Println("  balance <user_id>                      show a user's credit balance")
	fmt.Println("  grant <user_id> <amount>               grant credits to a user")
}

func createUser(ctx context.Context, a *app.App) {
	if len(os.Args) < 4 {
		color.Red("Usage: create-user <username> <email>")
		os.Exit(1)
	}
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		color.Red("Failed to read password: %v", err)
		os.Exit(1)
	}

	u, err := a.UserService.Register(ctx, os.Args[2], os.Args[3], string(password))
	if err != nil {
		color.Red("Failed to create user: %v", err)
		os.Exit(1)
	}
	color.Green("User created: %s (%s)", u.Username, u.ID)
}

func seedKnowledge(ctx context.Context, a *app.App) {
	if len(os.Args) < 4 {
		color.Red("Usage: seed-knowledge <category> <content>")
		os.Exit(1)
	}
	entry, err := a.KnowledgeService.Add(ctx, os.Args[2], strings.Join(os.Args[3:], " "))
	if err != nil {
		color.Red("Failed to add knowledge entry: %v", err)
		os.Exit(1)
	}
	color.Green("Knowledge entry %s added under %q", entry.ID, entry.Category)
}

func showBalance(ctx context.Context, a *app.App) {
	if len(os.Args) < 3 {
		color.Red("Usage: balance <user_id>")
		os.Exit(1)
	}
	userID, err := uuid.Parse(os.Args[2])
	if err != nil {
		color.Red("Invalid user id: %v", err)
		os.Exit(1)
	}
	balance, err := a.LedgerService.GetBalance(ctx, userID)
	if err != nil {
		color.Red("Failed to fetch balance: %v", err)
		os.Exit(1)
	}
	color.Cyan("Balance for %s: %d credits", userID, balance)
}

func grantCredits(ctx context.Context, a *app.App) {
	if len(os.Args) < 4 {
		color.Red("Usage: grant <user_id> <amount>")
		os.Exit(1)
	}
	userID, err := uuid.Parse(os.Args[2])
	if err != nil {
		color.Red("Invalid user id: %v", err)
		os.Exit(1)
	}
	amount, err := strconv.ParseInt(os.Args[3], 10, 64)
	if err != nil {
		color.Red("Invalid amount: %v", err)
		os.Exit(1)
	}
	txID, err := a.LedgerService.Credit(ctx, userID, amount, credit.TxPurchase, "", map[string]string{
		"source": "cli",
	})
	if err != nil {
		color.Red("Failed to grant credits: %v", err)
		os.Exit(1)
	}
	color.Green("Granted %d credits to %s (tx %s)", amount, userID, txID)
}
