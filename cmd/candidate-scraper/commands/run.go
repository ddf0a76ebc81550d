package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/candidate-contact-scraper/internal/scraper"
	"github.com/spf13/cobra"
)

var (
	runURLs     []string
	runFile     string
	runOutput   string
	runQuery    string
	runHeadless bool
	runNoDB     bool
)

func init() {
	runCmd.Flags().StringSliceVar(&runURLs, "urls", nil, "Profile URLs to scrape, comma separated.")
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "File with one profile URL per line.")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "profiles.json", "JSON file to write profiles to when no database is configured.")
	runCmd.Flags().StringVarP(&runQuery, "query", "q", "", "Search query the URLs came from.")
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "Run the browser headless.")
	runCmd.Flags().BoolVar(&runNoDB, "no-db", false, "Write to the output file even when a database is configured.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--urls <url,...>] [--file <urls.txt>] [--output <profiles.json>]",
	Short: "Scrapes a list of profile URLs one at a time and saves the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := append([]string(nil), runURLs...)
		urls = append(urls, args...)
		if runFile != "" {
			f, err := os.Open(runFile)
			if err != nil {
				return fmt.Errorf("failed to open url file: %w", err)
			}
			fromFile, err := readURLs(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to read url file: %w", err)
			}
			urls = append(urls, fromFile...)
		}
		urls = dedupe(urls)
		if len(urls) == 0 {
			return fmt.Errorf("no profile URLs given, use --urls or --file")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("headless") {
			cfg.Browser.Headless = runHeadless
		}

		dbCfg := cfg.Database
		if runNoDB {
			dbCfg.Host = ""
		}
		db, err := openDatabase(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if db != nil {
			defer db.Close()
		}

		save, err := saver(db, cfg.Redis.Stream, runOutput, log)
		if err != nil {
			return err
		}

		p, err := newPipeline(cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()

		stats := p.orchestrator.Process(ctx, urls, p.extractor.Extract, save, scraper.RunContext{
			Page:        p.page,
			SearchQuery: runQuery,
			OnProfile: func(ev scraper.ProfileEvent) {
				log.Info("profile scraped",
					"progress", fmt.Sprintf("%d/%d", ev.Index+1, ev.Total),
					"url", ev.URL,
					"name", ev.Profile.Personal.Name,
					"has_email", ev.Profile.Personal.Email != nil,
					"has_phone", ev.Profile.Personal.Phone != nil)
			},
			OnError: func(ev scraper.ErrorEvent) {
				log.Warn("profile failed", "index", ev.Index, "url", ev.URL, "code", ev.Code, "error", ev.Error)
			},
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"stats":  stats,
			"errors": p.errors.Entries(),
		})
	},
}

// readURLs returns the non-empty lines of r. Lines starting with # are
// skipped.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// dedupe trims and drops repeated URLs, keeping first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
