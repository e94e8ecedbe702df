// Command listtechs prints the Shopmonkey staff users for the configured
// location. The staffing sheet's ID column must hold these user ids; run
// this when adding a technician to find theirs.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	appconfig "github.com/ridgelineauto/scheduling-api/internal/config"
	"github.com/ridgelineauto/scheduling-api/internal/shopmonkey"
	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewConsole(cfg.LogLevel)

	client, err := shopmonkey.New(shopmonkey.Config{
		BaseURL:    cfg.ShopmonkeyBaseURL,
		APIToken:   cfg.ShopmonkeyAPIToken,
		LocationID: cfg.ShopmonkeyLocationID,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "listtechs:", err)
		os.Exit(1)
	}

	users, err := client.GetUsers(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "listtechs:", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.FullName(), u.Email)
	}
	w.Flush()
}
