// galleryctl is an operator tool for the gallery. Its only command today
// creates a user account directly against the database, which is how the
// first account gets bootstrapped on a fresh deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/pkgforge/gallery/internal/cryptox"
	"github.com/pkgforge/gallery/internal/server/services"
	"github.com/pkgforge/gallery/internal/server/storage/postgres"
)

func main() {
	var (
		dsn      string
		username string
		email    string
	)

	flag.StringVar(&dsn, "d", "", "PostgreSQL DSN")
	flag.StringVar(&username, "u", "", "username for the new account")
	flag.StringVar(&email, "e", "", "email address for the new account")
	flag.Parse()

	if dsn == "" || username == "" || email == "" {
		flag.Usage()
		os.Exit(2)
	}

	password, err := readPassword()
	if err != nil {
		log.Fatal(err)
	}

	manager, err := postgres.NewManager(dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer manager.Close()

	ctx := context.Background()
	if err := manager.RunMigrations(ctx); err != nil {
		log.Fatal(err)
	}

	users := services.NewUsersService(manager.Users(), cryptox.NewService())
	user, err := users.Create(ctx, username, password, email)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("created user %s <%s>\n", user.Username, user.EmailAddress)
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}

	return string(first), nil
}
