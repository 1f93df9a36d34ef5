// Command apikey manages API credentials from the operator's shell.
// The cleartext key is printed exactly once at creation; only its
// SHA-256 hash is stored.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"logistics-news/internal/domain/entity"
	pgRepo "logistics-news/internal/infra/adapter/persistence/postgres"
	"logistics-news/internal/infra/db"
	"logistics-news/internal/observability/logging"
)

func main() {
	slog.SetDefault(logging.NewLogger())

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database, err := db.Open(ctx)
	if err != nil {
		fatal("open database: %v", err)
	}
	defer database.Close()
	keys := pgRepo.NewAPIKeyRepo(database)

	switch os.Args[1] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		name := fs.String("name", "", "key holder name")
		role := fs.String("role", string(entity.RoleReader), "role: admin, reader or subscriber")
		_ = fs.Parse(os.Args[2:])
		if *name == "" {
			fatal("create: -name is required")
		}
		create(ctx, keys, *name, entity.Role(*role))
	case "list":
		list(ctx, keys)
	case "revoke":
		fs := flag.NewFlagSet("revoke", flag.ExitOnError)
		id := fs.String("id", "", "key id to revoke")
		_ = fs.Parse(os.Args[2:])
		if *id == "" {
			fatal("revoke: -id is required")
		}
		if err := keys.Revoke(ctx, *id); err != nil {
			fatal("revoke: %v", err)
		}
		fmt.Printf("revoked %s\n", *id)
	default:
		usage()
		os.Exit(2)
	}
}

func create(ctx context.Context, keys interface {
	Create(ctx context.Context, key *entity.APIKey) error
}, name string, role entity.Role) {
	switch role {
	case entity.RoleAdmin, entity.RoleReader, entity.RoleSubscriber:
	default:
		fatal("create: unknown role %q", role)
	}

	cleartext, err := entity.GenerateAPIKey()
	if err != nil {
		fatal("generate key: %v", err)
	}
	key := &entity.APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		KeyHash:   entity.HashAPIKey(cleartext),
		Role:      role,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
	if err := keys.Create(ctx, key); err != nil {
		fatal("store key: %v", err)
	}

	fmt.Printf("id:   %s\nname: %s\nrole: %s\nkey:  %s\n", key.ID, key.Name, key.Role, cleartext)
	fmt.Println("store the key now; it cannot be shown again")
}

func list(ctx context.Context, keys interface {
	List(ctx context.Context) ([]*entity.APIKey, error)
}) {
	rows, err := keys.List(ctx)
	if err != nil {
		fatal("list: %v", err)
	}
	for _, k := range rows {
		lastUsed := "never"
		if !k.LastUsedAt.IsZero() {
			lastUsed = k.LastUsedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s\t%s\t%s\tenabled=%t\tlast_used=%s\n", k.ID, k.Name, k.Role, k.Enabled, lastUsed)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: apikey <command> [flags]

commands:
  create -name NAME [-role admin|reader|subscriber]
  list
  revoke -id ID`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
