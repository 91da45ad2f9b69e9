package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/UltraSive/payload-store/internal/client"
)

const usage = `usage: payloadctl [flags] put <payload>|-
       payloadctl [flags] get <id>

flags:
`

type storeClient interface {
	Store(ctx context.Context, payload string) (string, error)
	Fetch(ctx context.Context, id string) (string, error)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("payloadctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaultURL := os.Getenv("PAYLOADSTORE_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	baseURL := fs.String("url", defaultURL, "payload store base URL")
	socket := fs.String("socket", "", "unix socket path; overrides -url")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var c storeClient
	if *socket != "" {
		sc, err := client.DialSocket(ctx, *socket)
		if err != nil {
			fmt.Fprintln(stderr, "dial:", err)
			return 1
		}
		defer sc.Close()
		c = sc
	} else {
		c = client.New(*baseURL, *timeout)
	}

	cmd, arg := fs.Arg(0), fs.Arg(1)
	switch cmd {
	case "put":
		payload := arg
		if arg == "-" {
			b, err := io.ReadAll(stdin)
			if err != nil {
				fmt.Fprintln(stderr, "read stdin:", err)
				return 1
			}
			payload = string(b)
		}
		id, err := c.Store(ctx, payload)
		if err != nil {
			fmt.Fprintln(stderr, "put:", err)
			return 1
		}
		fmt.Fprintln(stdout, id)

	case "get":
		payload, err := c.Fetch(ctx, strings.TrimSpace(arg))
		if errors.Is(err, client.ErrNotFound) {
			fmt.Fprintln(stderr, "not found")
			return 3
		}
		if err != nil {
			fmt.Fprintln(stderr, "get:", err)
			return 1
		}
		fmt.Fprint(stdout, payload)

	default:
		fs.Usage()
		return 2
	}
	return 0
}
