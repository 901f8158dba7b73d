// Command screen-smoketest screens an entity name against the configured
// sanctions lists and the registry from the command line, without the web
// server or database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tradesafe/tradeverify/src/registry"
	"github.com/tradesafe/tradeverify/src/sanctions"
)

var (
	nameFlag    = flag.String("name", "", "Entity name to screen (required)")
	countryFlag = flag.String("country", "US", "ISO-3166 alpha-2 country code")
	sdnFlag     = flag.String("sdn", "data/ofac/sdn_advanced.xml", "Path to the OFAC SDN XML file")
	euFlag      = flag.String("eu", "data/eu/eu_sanctions.xml", "Path to the EU consolidated list XML file")
	tickersFlag = flag.String("tickers", "data/sec/company_tickers.json", "Path to the SEC tickers JSON file")
	timeoutFlag = flag.Duration("timeout", 30*time.Second, "Screening timeout")
)

func main() {
	log.SetFlags(0)
	flag.Parse()

	if *nameFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	screener := sanctions.NewScreener(
		sanctions.NewList(sanctions.ListSDN, sanctions.SDNLoader(*sdnFlag)),
		sanctions.NewList(sanctions.ListConsolidated, sanctions.ConsolidatedLoader(*euFlag)),
	)

	result := screener.Screen(ctx, *nameFlag)
	fmt.Printf("Sanctions screen for %q: matched=%v\n", *nameFlag, result.Matched)
	for _, list := range result.Lists {
		fmt.Printf("  %s: %s", list.List, list.Status)
		if list.Error != "" {
			fmt.Printf(" (%s)", list.Error)
		}
		if list.MatchCount > 0 {
			fmt.Printf(" (%d matches)", list.MatchCount)
		}
		fmt.Println()
		for _, d := range list.Details {
			fmt.Printf("    %s", d.Name)
			if d.AliasUsed != "" {
				fmt.Printf(" (alias %s)", d.AliasUsed)
			}
			if len(d.Programs) > 0 {
				fmt.Printf(" programs=%v", d.Programs)
			}
			fmt.Println()
		}
	}

	reg := registry.New(*tickersFlag)
	res := reg.Lookup(ctx, *nameFlag, *countryFlag)
	fmt.Printf("\nRegistry lookup (%s, %s): %s", registry.SourceEDGAR, *countryFlag, res.Status)
	if res.Error != "" {
		fmt.Printf(" (%s)", res.Error)
	}
	fmt.Println()
	for _, c := range res.Companies {
		fmt.Printf("  %s  CIK=%s ticker=%s\n", c.Name, c.CIK, c.Ticker)
	}
}
