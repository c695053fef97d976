package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/garnizeh/terapia/pkg/ollama"
)

// draft prints the short description the assistant would write for a long
// description read from stdin. Handy for trying models and prompts locally.
func main() {
	cfg := ollama.DefaultConfig()
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:11434", "Ollama endpoint")
	flag.StringVar(&cfg.Model, "model", "deepseek-r1:1.5b", "model used for drafting")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	long, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatal(err)
	}

	client, err := ollama.NewDefaultClient(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	short, err := ollama.NewDrafter(client, cfg.Model).DraftShortDescription(ctx, string(long))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(short)
}
