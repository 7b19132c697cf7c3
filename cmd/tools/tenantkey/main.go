// cmd/tools/tenantkey/main.go
//
// Sets or clears the admin key for a tenant. Keys are stored as bcrypt
// hashes; an empty hash disables panel and cancellation access.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rmarchetti/turnera/internal/api/apiutil"
	"github.com/rmarchetti/turnera/internal/db"
	"github.com/rmarchetti/turnera/internal/store"
)

func main() {
	var (
		dbPath   = flag.String("db", "", "Path to SQLite database")
		tenantID = flag.String("tenant", "", "Tenant ID")
		key      = flag.String("key", "", "Admin key to set")
		clear    = flag.Bool("clear", false, "Disable admin access for the tenant")
	)
	flag.Parse()

	if *dbPath == "" || *tenantID == "" {
		log.Println("-db and -tenant are required:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if (*key == "") != *clear {
		log.Fatal("Provide exactly one of -key or -clear")
	}

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	hash := ""
	if !*clear {
		hash, err = apiutil.HashAdminKey(*key)
		if err != nil {
			log.Fatalf("Failed to hash key: %v", err)
		}
	}

	tenants := store.NewTenants(database, store.TenantDefaults{})
	if err := tenants.SetAdminKeyHash(context.Background(), *tenantID, hash); err != nil {
		log.Fatalf("Failed to update tenant: %v", err)
	}

	if *clear {
		fmt.Printf("Admin access disabled for %s\n", *tenantID)
	} else {
		fmt.Printf("Admin key updated for %s\n", *tenantID)
	}
}
