// Command probe runs a single search against one provider and prints what the
// adapter sees. It is meant for checking selectors after a provider changes
// its markup.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"maps-scraper/adapters"
	"maps-scraper/internal/types"
	"maps-scraper/utils"
)

func main() {
	_ = godotenv.Load()

	var (
		providerFlag = flag.String("provider", adapters.GoogleName, "Provider to probe (google, yandex)")
		queryFlag    = flag.String("query", "", "Search query")
		cityFlag     = flag.String("city", "", "City to search in")
		countryFlag  = flag.String("country", "", "Country appended to the search")
		limitFlag    = flag.Int("limit", 3, "Number of harvested links to extract")
		configFlag   = flag.String("config", "", "YAML settings file")
		verbose      = flag.Bool("verbose", true, "Enable verbose logging")
	)
	flag.Parse()

	if *queryFlag == "" || *cityFlag == "" {
		log.Fatal("Both --query and --city are required")
	}

	config, err := types.LoadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := utils.NewLogger(*verbose)

	adapter, err := adapters.NewAdapter(*providerFlag, config, logger)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *providerFlag, err)
	}
	defer adapter.Close()

	fmt.Printf("=== Searching %s for %q in %s ===\n", adapter.Name(), *queryFlag, *cityFlag)
	links, err := adapter.SearchPlaces(context.Background(), *queryFlag, *cityFlag, *countryFlag)
	if err != nil {
		log.Printf("Search failed: %v", err)
		return
	}
	fmt.Printf("Links harvested: %d\n", len(links))
	for i, link := range links {
		fmt.Printf("  %d: %s\n", i+1, link)
	}

	cityFilter := ""
	if adapter.SupportsCityFilter() {
		cityFilter = *cityFlag
	}

	for i, link := range links {
		if i >= *limitFlag {
			break
		}
		fmt.Printf("\n=== Record %d ===\n", i+1)
		record, err := adapter.ExtractPlaceData(link, cityFilter)
		if err != nil {
			fmt.Printf("Extraction failed: %v\n", err)
			continue
		}
		if record == nil {
			fmt.Println("Filtered out by city")
			continue
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			log.Printf("Failed to print record: %v", err)
		}
	}
}
