package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/receiptpal/receiptpal/internal/app"
	"github.com/receiptpal/receiptpal/internal/client"
	"github.com/receiptpal/receiptpal/internal/identity"
)

// noCamera is the Device for a terminal: camera capture is unavailable, only
// file selection works
type noCamera struct{}

func (noCamera) Open(ctx context.Context) (app.Stream, error) {
	return nil, fmt.Errorf("no camera available, use --scan with an image file")
}

func main() {
	godotenv.Load()

	fs := ff.NewFlagSet("receiptpal-cli")
	var (
		backendURL = fs.StringLong("backend", "http://localhost:8080", "Backend base URL")
		scanPath   = fs.StringLong("scan", "", "Path of a receipt image to upload")
		question   = fs.StringLong("ask", "", "Question to ask about your receipts")
		email      = fs.StringLong("email", "", "Email for wallet pass creation")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTPAL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *scanPath == "" && *question == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: nothing to do, pass --scan and/or --ask")
		os.Exit(1)
	}

	ctx := context.Background()

	// Identity bootstrap gates everything else
	ident := identity.New(identity.ConfigFromEnv())
	if !ident.Enabled() {
		fmt.Fprintln(os.Stderr, "error: identity is not configured (set FIREBASE_API_KEY)")
		os.Exit(1)
	}
	if err := ident.SignInAnonymously(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: sign-in failed: %v\n", err)
		os.Exit(1)
	}

	a := app.New(
		client.New(*backendURL),
		ident,
		noCamera{},
		app.NotifierFunc(func(message string) {
			fmt.Println(message)
		}),
		app.NavigatorFunc(func(url string) error {
			fmt.Printf("Open this URL to save your pass:\n%s\n", url)
			return nil
		}),
	)
	defer a.Close()

	if *scanPath != "" {
		data, err := os.ReadFile(*scanPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading image: %v\n", err)
			os.Exit(1)
		}
		if err := a.Capture().SelectFile(data, ""); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if err := a.Upload(ctx); err != nil {
			os.Exit(1)
		}
		fmt.Printf("Session id: %s\n", a.LastSessionID())
	}

	if *question != "" {
		if err := a.Ask(ctx, *question); err != nil {
			os.Exit(1)
		}

		if pass := a.Pass(); pass != nil {
			fmt.Println("Your grocery list:")
			for _, item := range pass.Items {
				quantity := item.Quantity
				if quantity <= 0 {
					quantity = 1
				}
				fmt.Printf("  - %s (Quantity: %d)\n", item.Name, quantity)
			}
			if *email != "" {
				if err := a.SubmitPass(ctx, *email); err != nil {
					os.Exit(1)
				}
			} else {
				fmt.Println("Pass --email to save this list as a wallet pass.")
			}
		} else {
			fmt.Println(a.Answer())
		}
	}
}
