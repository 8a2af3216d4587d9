package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/crypto"
)

func main() {
	secret := flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "Shared webhook secret (defaults to $WEBHOOK_SECRET)")
	bodyFile := flag.String("body", "", "File containing request body (or use stdin)")
	url := flag.String("url", "", "If set, also print a curl command posting the body to this URL")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -secret <secret> [-body <file>] [-url <webhook-url>]")
		fmt.Fprintln(os.Stderr, "  Reads body from stdin if -body not specified")
		os.Exit(1)
	}

	// Read body
	var body []byte
	var err error
	if *bodyFile != "" {
		body, err = os.ReadFile(*bodyFile)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		os.Exit(1)
	}

	signature := crypto.Sign(*secret, body)

	// Output header
	fmt.Printf("%s: %s\n", crypto.SignatureHeader, signature)

	if *url != "" && *bodyFile != "" {
		fmt.Printf("curl -sS -X POST %s -H 'Content-Type: application/json' -H '%s: %s' --data-binary @%s\n",
			*url, crypto.SignatureHeader, signature, *bodyFile)
	}
}
