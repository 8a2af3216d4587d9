// Webhook CLI - command line client for the webhook ingestion service
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/clients/go/webhook"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("WEBHOOK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	client := webhook.NewClient(baseURL, os.Getenv("WEBHOOK_SECRET"))
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Ready()
		exitOnError(err)
		printJSON(resp)

	case "send":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: webhook send <from> <text> [message_id]")
			os.Exit(1)
		}
		msg := webhook.Message{
			MessageID: strconv.FormatInt(time.Now().UnixNano(), 36),
			From:      os.Args[2],
			Timestamp: time.Now().UTC(),
			Text:      os.Args[3],
		}
		if len(os.Args) > 4 {
			msg.MessageID = os.Args[4]
		}
		resp, err := client.SendMessage(msg)
		exitOnError(err)
		fmt.Printf("%s: %s\n", msg.MessageID, resp.Status)

	case "send-raw":
		body, err := io.ReadAll(os.Stdin)
		exitOnError(err)
		resp, err := client.Send(body)
		exitOnError(err)
		fmt.Println(resp.Status)

	case "list":
		opts := webhook.ListOptions{Limit: 20}
		if len(os.Args) > 2 {
			opts.From = os.Args[2]
		}
		resp, err := client.ListMessages(opts)
		exitOnError(err)
		for _, msg := range resp.Items {
			fmt.Printf("[%s] %s (%s): %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"), msg.From, msg.MessageID, msg.Text)
		}
		fmt.Printf("%d of %d\n", len(resp.Items), resp.Total)

	case "search":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: webhook search <query>")
			os.Exit(1)
		}
		resp, err := client.ListMessages(webhook.ListOptions{Query: os.Args[2], Limit: 20})
		exitOnError(err)
		for _, msg := range resp.Items {
			fmt.Printf("[%s] %s\n", msg.From, msg.Text)
		}

	case "stats":
		resp, err := client.Stats()
		exitOnError(err)
		printJSON(resp)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Webhook CLI - signed message ingestion client

Usage: webhook <command> [options]

Commands:
  send <from> <text> [id]   Sign and deliver a message
  send-raw                  Sign and deliver stdin as-is
  list [from]               List stored messages
  search <query>            Search message text
  stats                     Show aggregate statistics
  health                    Check service readiness

Environment:
  WEBHOOK_URL      Server URL (default: http://localhost:8000)
  WEBHOOK_SECRET   Shared secret used to sign deliveries`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
