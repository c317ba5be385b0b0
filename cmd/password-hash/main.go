// Command password-hash prints a bcrypt hash for an operator password read
// from stdin. With -create it also inserts the operator into Postgres.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/pkg/password"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
)

func main() {
	create := flag.Bool("create", false, "insert the operator into the database using POSTGRES_DSN")
	username := flag.String("username", "", "operator username (required with -create)")
	role := flag.String("role", string(enums.OperatorRoleOperator), "operator role: owner or operator")
	flag.Parse()

	_ = godotenv.Load()

	plain, err := readPassword()
	if err != nil {
		fail(err)
	}
	hash, err := password.Hash(plain)
	if err != nil {
		fail(err)
	}

	if !*create {
		fmt.Println(hash)
		return
	}

	opRole := enums.OperatorRole(strings.ToLower(strings.TrimSpace(*role)))
	if strings.TrimSpace(*username) == "" || !opRole.Valid() {
		fail(fmt.Errorf("-create needs -username and a valid -role"))
	}
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		fail(fmt.Errorf("POSTGRES_DSN is empty"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgrepo.NewPool(ctx, dsn, 2)
	if err != nil {
		fail(err)
	}
	defer pool.Close()

	op, err := pgrepo.NewOperatorRepo(pool).Create(ctx, model.Operator{
		ID:           uuid.NewString(),
		Username:     *username,
		PasswordHash: hash,
		Role:         opRole,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("created operator %s (%s) id=%s\n", op.Username, op.Role, op.ID)
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
