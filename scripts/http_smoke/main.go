package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

func main() {
	if err := run(); err != nil {
		log.Printf("http_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:8000", "server base URL")
	chat := flag.Int64("chat", 0, "chat id to replay (0 skips replay)")
	n := flag.Int("n", 10, "number of messages to replay")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	paths := []string{"/status", "/status/archive"}
	if *chat != 0 {
		paths = append(paths, "/chats/"+strconv.FormatInt(*chat, 10)+"/messages?n="+strconv.Itoa(*n))
	}

	for _, path := range paths {
		status, body, err := get(ctx, *addr+path)
		if err != nil {
			return fmt.Errorf("GET %s: %w", path, err)
		}
		fmt.Printf("GET %s -> %d\n", path, status)

		var pretty any
		if err := json.Unmarshal(body, &pretty); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		fmt.Println(string(out))

		if path == "/status" && status != http.StatusOK {
			return fmt.Errorf("server is not healthy")
		}
	}
	return nil
}

func get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
