package main

import (
	"context"

	"github.com/maltedev/candidate-contact-scraper/cmd/candidate-scraper/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
