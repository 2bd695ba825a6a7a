// Command rank-listings runs the ranking and validation stages over a JSON
// file of listings, without touching the store. Useful for trying out
// prompts and models against a fixed candidate set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vesal/haggler/config"
	"github.com/vesal/haggler/internal/agent"
	"github.com/vesal/haggler/internal/llm"
	"github.com/vesal/haggler/internal/market"
)

func main() {
	request := flag.String("request", "", "The user's request")
	file := flag.String("file", "", "Path to a JSON file with an array of listings")
	top := flag.Int("top", 3, "How many listings to ask for")
	rawJSON := flag.Bool("json", false, "Output raw JSON only")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	config.LoadEnvFile()

	if *request == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "both -request and -file are required")
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var listings []market.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := llm.NewTogetherClient(llm.TogetherOpts{
		APIKey: os.Getenv("TOGETHER_API_KEY"),
		Model:  os.Getenv("LLM_MODEL"),
	})
	a := agent.New(client, agent.WithMaxRanked(*top))

	ranked, err := a.Rank(ctx, *request, listings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	verdicts, err := a.Validate(ctx, *request, listings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *rawJSON {
		out, _ := json.MarshalIndent(map[string]any{
			"ranked":   ranked,
			"verdicts": verdicts,
		}, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println("Ranked:")
	for i, r := range ranked {
		fmt.Printf("%d. %s (%.2f) %s\n", i+1, r.Description, r.Price, r.URL)
	}
	fmt.Println("\nVerdicts:")
	for _, v := range verdicts {
		fmt.Printf("- %s relevant=%d: %s\n", v.ItemID, v.Relevant, v.Reasoning)
	}
}
