package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/modelgate/modelgate/internal/storage"
)

// ensureAdminPassword makes sure an admin password hash exists before the
// server starts. ADMIN_PASSWORD is honored for non-interactive deployments;
// otherwise the operator is prompted on first run.
func ensureAdminPassword(store storage.Storage) error {
	hasPassword, err := store.HasAdminPassword()
	if err != nil {
		return fmt.Errorf("failed to check admin password: %w", err)
	}

	if hasPassword {
		return nil
	}

	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		if !isValidAdminPassword(password) {
			return fmt.Errorf("ADMIN_PASSWORD must be alphanumeric with at least 8 characters")
		}
		return saveAdminPassword(store, password)
	}

	fmt.Println()
	fmt.Println("No admin password configured. Please set one now.")
	fmt.Println("This password protects the Admin API.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		password, err := promptLine(reader, "Enter admin password (alphanumeric, min 8 chars): ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if !isValidAdminPassword(password) {
			fmt.Println("Password must be alphanumeric with at least 8 characters.")
			fmt.Println()
			continue
		}

		confirm, err := promptLine(reader, "Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if password != confirm {
			fmt.Println("Passwords do not match. Please try again.")
			fmt.Println()
			continue
		}

		if err := saveAdminPassword(store, password); err != nil {
			return err
		}

		fmt.Println()
		fmt.Println("Admin password saved.")
		fmt.Println()
		return nil
	}
}

// promptLine prints the prompt and reads one trimmed line from stdin.
func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func saveAdminPassword(store storage.Storage, password string) error {
	hash, err := storage.HashPassword(password, storage.DefaultArgon2Params())
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := store.SetAdminPasswordHash(hash); err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}
	return nil
}

func isValidAdminPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	for _, c := range password {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
