package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/segmentio/ksuid"
)

const defaultPassword = "Sim#Passw0rd"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "race":
		raceCmd(apiURL, args)
	case "swap":
		swapCmd(apiURL, args)
	case "populate":
		populateCmd(apiURL, args)
	case "reset":
		resetCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Identity Simulator - concurrent traffic against the identity service

USAGE:
  simulator <command> [options]

COMMANDS:
  race      Register the same email from many goroutines; exactly one must win
  swap      Two users race to move onto the same email; exactly one must win
  populate  Register and log in a batch of users concurrently
  reset     Spend a reset token twice; the second attempt must fail
  help      Show this help message

ENVIRONMENT:
  API_URL      Backend API URL (default: http://localhost:8080)
  ADMIN_TOKEN  Admin bearer token; when set, race and populate verify the
               user list holds no duplicate emails

EXAMPLES:
  simulator race --workers=50
  simulator populate --count=200 --workers=16
  simulator reset --email=alice@example.com --token=<token from server log>`)
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@sim.example.com", prefix, strings.ToLower(ksuid.New().String()))
}

func raceCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("race", flag.ExitOnError)
	workers := fs.Int("workers", 32, "Concurrent registrations of the same email")
	fs.Parse(args)

	client := NewAPIClient(apiURL)
	email := uniqueEmail("race")

	fmt.Println("=== Identity Simulator: Registration Race ===")
	fmt.Printf("Registering %s from %d goroutines...\n", email, *workers)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
		failures  []error
	)
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := client.Register(email, fmt.Sprintf("Racer%d", i), defaultPassword)

			mu.Lock()
			defer mu.Unlock()
			var se *StatusError
			switch {
			case err == nil:
				won++
			case errors.As(err, &se) && se.Status == http.StatusConflict:
				conflicts++
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	fmt.Printf("  created:   %d\n", won)
	fmt.Printf("  conflicts: %d\n", conflicts)
	fmt.Printf("  errors:    %d\n", len(failures))
	for _, err := range failures {
		fmt.Printf("    %v\n", err)
	}

	checkUniqueEmails(client)

	if won != 1 {
		fmt.Printf("FAILED: expected exactly one registration to succeed, got %d\n", won)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func swapCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("swap", flag.ExitOnError)
	rounds := fs.Int("rounds", 20, "Number of races to run")
	fs.Parse(args)

	client := NewAPIClient(apiURL)

	fmt.Println("=== Identity Simulator: Email Relocation Race ===")

	for round := 1; round <= *rounds; round++ {
		a, err := client.Register(uniqueEmail("swap-a"), "SwapA", defaultPassword)
		if err != nil {
			fmt.Printf("FAILED to create user: %v\n", err)
			os.Exit(1)
		}
		b, err := client.Register(uniqueEmail("swap-b"), "SwapB", defaultPassword)
		if err != nil {
			fmt.Printf("FAILED to create user: %v\n", err)
			os.Exit(1)
		}

		target := uniqueEmail("swap-target")
		results := make([]error, 2)
		var wg sync.WaitGroup
		for i, auth := range []*AuthResponse{a, b} {
			wg.Add(1)
			go func(i int, auth *AuthResponse) {
				defer wg.Done()
				_, results[i] = client.UpdateEmail(auth.Token.Token, auth.User.ID, target)
			}(i, auth)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
			}
		}
		if winners != 1 {
			fmt.Printf("  [%d/%d] FAILED: %d users hold %s (%v)\n", round, *rounds, winners, target, results)
			os.Exit(1)
		}
		fmt.Printf("  [%d/%d] OK\n", round, *rounds)
	}
}

func populateCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	count := fs.Int("count", 50, "Number of users to create")
	workers := fs.Int("workers", 8, "Concurrent clients")
	fs.Parse(args)

	client := NewAPIClient(apiURL)

	fmt.Printf("Creating %d users with %d workers...\n\n", *count, *workers)

	jobs := make(chan int)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				email := uniqueEmail("user")
				err := func() error {
					if _, err := client.Register(email, fmt.Sprintf("User%d", i), defaultPassword); err != nil {
						return err
					}
					auth, err := client.Login(email, defaultPassword)
					if err != nil {
						return err
					}
					_, err = client.Me(auth.Token.Token)
					return err
				}()

				mu.Lock()
				if err != nil {
					failed++
					fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, *count, err)
				} else {
					fmt.Printf("  [%d/%d] %s ok\n", i+1, *count, email)
				}
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < *count; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	checkUniqueEmails(client)

	fmt.Println()
	fmt.Printf("Done! %d created, %d failed\n", *count-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func resetCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	email := fs.String("email", "", "Email to reset (required)")
	token := fs.String("token", "", "Reset token from the server log; omit to only request one")
	password := fs.String("password", "N3w#Passw0rd", "New password")
	fs.Parse(args)

	if *email == "" {
		fmt.Println("Error: --email is required")
		fmt.Println("\nUsage: simulator reset --email=alice@example.com [--token=...]")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	if *token == "" {
		if err := client.ForgotPassword(*email); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Reset requested. Look for channel=operator in the server log and rerun with --token.")
		return
	}

	fmt.Print("Spending token... ")
	if err := client.ResetPassword(*token, *password); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	fmt.Print("Replaying token... ")
	err := client.ResetPassword(*token, *password)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		fmt.Printf("FAILED: replay was not rejected (%v)\n", err)
		os.Exit(1)
	}
	fmt.Println("rejected, OK")

	fmt.Print("Logging in with new password... ")
	if _, err := client.Login(*email, *password); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func checkUniqueEmails(client *APIClient) {
	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		return
	}

	users, err := client.ListUsers(adminToken)
	if err != nil {
		fmt.Printf("Warning: could not list users: %v\n", err)
		return
	}

	seen := make(map[string]string, len(users))
	for _, u := range users {
		if other, dup := seen[u.Email]; dup {
			fmt.Printf("FAILED: %s held by %s and %s\n", u.Email, other, u.ID)
			os.Exit(1)
		}
		seen[u.Email] = u.ID
	}
	fmt.Printf("Verified %d users, no duplicate emails\n", len(users))
}
