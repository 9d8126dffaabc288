// Package main implements simctl, an operator CLI for the airport twin API.
//
// Usage:
//
//	simctl status
//	simctl toggle
//	simctl weather storm
//	simctl traffic peak
//	simctl speed 2.5
//	simctl emergency
//	simctl tick
//	simctl refresh
//	simctl reset
//	simctl log
//	simctl -addr http://twin.internal:8080 summary
//
// The API address defaults to $AIRTWIN_ADDR, then http://localhost:8080.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"airtwin/internal/external"
	"airtwin/internal/types"
)

const defaultAddr = "http://localhost:8080"

// command describes how a subcommand maps onto the API.
type command struct {
	method string
	path   string
	args   int
	help   string
	// body builds the request body from the positional arguments.
	body func(args []string) (any, error)
}

var commands = map[string]command{
	"status":    {method: http.MethodGet, path: "/v1/simulation", help: "Show the simulation state"},
	"summary":   {method: http.MethodGet, path: "/v1/summary", help: "Show the dashboard summary"},
	"alerts":    {method: http.MethodGet, path: "/v1/alerts", help: "List active alerts"},
	"toggle":    {method: http.MethodPost, path: "/v1/simulation/toggle", help: "Start or pause the simulation"},
	"reset":     {method: http.MethodPost, path: "/v1/simulation/reset", help: "Stop and restore the default weather, traffic and emergency settings"},
	"emergency": {method: http.MethodPost, path: "/v1/simulation/emergency", help: "Toggle emergency mode"},
	"tick":      {method: http.MethodPost, path: "/v1/simulation/tick", help: "Advance the simulation by one step"},
	"refresh":   {method: http.MethodPost, path: "/v1/refresh", help: "Reload the snapshot from the data source"},
	"log":       {method: http.MethodGet, path: "/v1/simulation/log", help: "Print the event log"},
	"clear-log": {method: http.MethodDelete, path: "/v1/simulation/log", help: "Clear the event log"},
	"weather": {
		method: http.MethodPut, path: "/v1/simulation/weather", args: 1, help: "Set the weather scenario (normal|rain|storm|fog)",
		body: func(args []string) (any, error) { return map[string]string{"scenario": args[0]}, nil },
	},
	"traffic": {
		method: http.MethodPut, path: "/v1/simulation/traffic", args: 1, help: "Set the traffic level (low|medium|high|peak)",
		body: func(args []string) (any, error) { return map[string]string{"level": args[0]}, nil },
	},
	"speed": {
		method: http.MethodPut, path: "/v1/simulation/speed", args: 1, help: "Set the speed multiplier (0.5-5.0)",
		body: func(args []string) (any, error) {
			x, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return nil, fmt.Errorf("speed must be a number: %q", args[0])
			}
			return map[string]float64{"speed": x}, nil
		},
	},
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("simctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOr("AIRTWIN_ADDR", defaultAddr), "Airport twin API base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "Request timeout")
	fs.Usage = func() { usage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "error: unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}
	if len(rest) != cmd.args {
		fmt.Fprintf(stderr, "error: %s takes %d argument(s)\n", name, cmd.args)
		return 2
	}

	var body any
	if cmd.body != nil {
		var err error
		if body, err = cmd.body(rest); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = types.WithRequestID(ctx, uuid.NewString())

	client := external.NewBaseClient(nil, "simctl", external.RetryPolicy{}, "simctl")
	out, err := call(ctx, client, strings.TrimRight(*addr, "/"), cmd, body)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if len(out) > 0 {
		fmt.Fprintln(stdout, string(out))
	}
	return 0
}

// call issues the request and returns the indented "data" member of the
// response envelope. API errors are returned with their code and message.
func call(ctx context.Context, client *external.BaseClient, base string, cmd command, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cmd.method, base+cmd.path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, fmt.Errorf("%s: %s", appErr.Code, appErr.Message)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%s: %s (status %d)", env.Error.Code, env.Error.Message, resp.StatusCode)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, env.Data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: simctl [flags] <command> [argument]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].help)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
