// seed-resort bootstraps a resort with its default department, primary store
// and owner login (password: default123). Intended for dev/staging setup.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-resort --name "Test Resort" --email owner@test.local
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/models"
	"github.com/serenia-hospitality/procure_backend/utils"
)

func main() {
	name := flag.String("name", "", "Required: resort name")
	email := flag.String("email", "", "Required: owner email (becomes the owner's username)")
	country := flag.String("country", "", "Resort country")
	city := flag.String("city", "", "Resort city")
	flag.Parse()

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "--name and --email are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := utils.SetUserIdInContext(context.Background(), 1)

	resort, err := models.CreateResort(ctx, &models.NewResort{
		Name:    *name,
		Email:   *email,
		Country: *country,
		City:    *city,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create resort: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created resort %q id=%s\n", resort.Name, resort.ID.String())
	fmt.Printf("Owner login: username=%q password=%q (change it after first login)\n", *email, "default123")
	fmt.Printf("Primary department id=%d, primary store id=%d\n", resort.PrimaryDepartmentId, resort.PrimaryStoreId)
}
