package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/auth"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/backend"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/config"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/docstore"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/models"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/repository"
	"github.com/james247-eng/AURANOVA-AFRIQUE-ECOMMERCE-WEBSITE/internal/store"
)

const usage = "expected 'add-user', 'set-role' or 'stats' subcommand"

func main() {
	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	email := addUserCmd.String("email", "", "Email for the new user")
	password := addUserCmd.String("password", "", "Password for the new user")
	role := addUserCmd.String("role", string(models.RoleAdmin), "customer, admin or super_admin")
	first := addUserCmd.String("first", "", "First name")
	last := addUserCmd.String("last", "", "Last name")

	setRoleCmd := flag.NewFlagSet("set-role", flag.ExitOnError)
	roleEmail := setRoleCmd.String("email", "", "Email of the user")
	newRole := setRoleCmd.String("role", "", "customer, admin or super_admin")

	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-user":
		addUserCmd.Parse(os.Args[2:])
		if *email == "" || *password == "" {
			fmt.Println("email and password are required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		createUser(*email, *password, *role, *first, *last)
	case "set-role":
		setRoleCmd.Parse(os.Args[2:])
		if *roleEmail == "" || *newRole == "" {
			fmt.Println("email and role are required")
			setRoleCmd.PrintDefaults()
			os.Exit(1)
		}
		setRole(*roleEmail, *newRole)
	case "stats":
		statsCmd.Parse(os.Args[2:])
		printStats()
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func open() (*config.Config, docstore.Store) {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.DocStore, err)
	}
	return cfg, s
}

func parseRole(r string) models.Role {
	switch role := models.Role(strings.TrimSpace(r)); role {
	case models.RoleCustomer, models.RoleAdmin, models.RoleSuperAdmin:
		return role
	}
	log.Fatalf("Unknown role %q (want customer, admin or super_admin)", r)
	return ""
}

func createUser(email, password, role, first, last string) {
	if len(password) < auth.MinPasswordLength {
		log.Fatalf("Password must be at least %d characters", auth.MinPasswordLength)
	}
	r := parseRole(role)
	cfg, s := open()
	defer s.Close()
	repos := repository.New(s)
	ctx := context.Background()

	existing, err := repos.Credentials.FindByEmail(ctx, email)
	if err != nil {
		log.Fatalf("Failed to look up %s: %v", email, err)
	}
	if existing != nil {
		log.Fatalf("An account for %s already exists", email)
	}

	svc := auth.NewService(repos, cfg.ResetTokenKey, cfg.PublicBaseURL, nil)
	u, err := svc.CreateAccount(ctx, models.User{FirstName: first, LastName: last, Email: email, Role: r}, password)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	fmt.Printf("User '%s' created successfully with role %s (id %s).\n", u.Email, u.Role, u.ID)
}

func setRole(email, role string) {
	r := parseRole(role)
	_, s := open()
	defer s.Close()
	repos := repository.New(s)
	ctx := context.Background()

	u, err := repos.Users.FindByEmail(ctx, email)
	if err != nil {
		log.Fatalf("Failed to look up %s: %v", email, err)
	}
	if u == nil {
		log.Fatalf("No user with email %s", email)
	}
	if err := repos.Users.SetRole(ctx, u.ID, r); err != nil {
		log.Fatalf("Failed to set role: %v", err)
	}
	fmt.Printf("User '%s' is now %s.\n", u.Email, r)
}

func printStats() {
	_, s := open()
	defer s.Close()
	db, ok := s.(*store.Store)
	if !ok {
		log.Fatalf("stats needs the sqlite backend")
	}
	stats, err := db.Stats(context.Background())
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Println("Documents:")
	for _, name := range sortedKeys(stats.Documents) {
		fmt.Printf("  %-18s %d\n", name, stats.Documents[name])
	}
	fmt.Println("Orders by status:")
	for _, status := range sortedKeys(stats.OrdersByStatus) {
		fmt.Printf("  %-18s %d\n", status, stats.OrdersByStatus[status])
	}
	fmt.Printf("Unread messages:   %d\n", stats.UnreadMessages)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
