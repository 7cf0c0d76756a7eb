// Inspire Check - connectivity check for the Inspire Home Automation cloud
//
// A small diagnostic tool that exercises the vendor API with real
// credentials, outside the bridge daemon:
//   - Connects and obtains a session key
//   - Lists all devices on the account
//   - Fetches detailed information for each device
//   - Checks each device's gateway connection status
//
// Credentials come from flags or the environment (INSPIRE_API_KEY,
// INSPIRE_USERNAME, INSPIRE_PASSWORD). A .env file in the working
// directory is loaded if present.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nerrad567/inspire-bridge/internal/infrastructure/config"
	"github.com/nerrad567/inspire-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/inspire-bridge/internal/inspire"
)

const (
	defaultBaseURL        = "https://www.inspirehomeautomation.co.uk/client/api1_4/api.php"
	defaultRequestTimeout = 30
	rateLimitInterval     = time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Best effort: a missing .env file is not an error
	_ = godotenv.Load()

	apiKey := flag.String("api-key", "", "Inspire API key (or set INSPIRE_API_KEY)")
	username := flag.String("username", "", "Account username (or set INSPIRE_USERNAME)")
	password := flag.String("password", "", "Account password (or set INSPIRE_PASSWORD)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	key := firstNonEmpty(*apiKey, os.Getenv("INSPIRE_API_KEY"))
	user := firstNonEmpty(*username, os.Getenv("INSPIRE_USERNAME"))
	pass := firstNonEmpty(*password, os.Getenv("INSPIRE_PASSWORD"))

	if key == "" || user == "" || pass == "" {
		return fmt.Errorf("credentials required: provide --api-key/--username/--password or set INSPIRE_API_KEY, INSPIRE_USERNAME and INSPIRE_PASSWORD")
	}

	logCfg := config.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"}
	if *verbose {
		logCfg.Level = "debug"
	}
	log := logging.New(logCfg, "inspirecheck")

	limiter := inspire.NewRateLimiter(rateLimitInterval)
	client := inspire.NewClient(config.InspireConfig{
		BaseURL:        defaultBaseURL,
		APIKey:         key,
		Username:       user,
		Password:       pass,
		RequestTimeout: defaultRequestTimeout,
	}, limiter, log)
	defer client.Close()

	fmt.Println("Inspire API connectivity check")

	// Connect
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	fmt.Println("connected: session key obtained")

	// Device list
	devices, err := client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	fmt.Printf("devices: %d found\n", len(devices))

	// Per-device detail and connection status
	for _, d := range devices {
		fmt.Printf("\n%s (id %s, type %s)\n", d.Name, d.ID, d.Type)

		info, infoErr := client.DeviceInformation(ctx, d.ID)
		if infoErr != nil {
			fmt.Printf("  information: error: %v\n", infoErr)
		} else {
			printAttributes(info)
		}

		connected, connErr := client.CheckConnection(ctx, d.ID)
		switch {
		case connErr != nil:
			fmt.Printf("  gateway: error: %v\n", connErr)
		case connected:
			fmt.Println("  gateway: connected")
		default:
			fmt.Println("  gateway: disconnected")
		}
	}

	// Account summary
	summary, err := client.AccountSummary(ctx)
	if err != nil {
		fmt.Printf("\nsummary: error: %v\n", err)
	} else {
		fmt.Println("\naccount summary")
		printAttributes(summary)
	}

	fmt.Printf("\nall checks complete: %d device(s)\n", len(devices))
	return nil
}

func printAttributes(attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %s\n", k, attrs[k])
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
