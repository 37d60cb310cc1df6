// Feed diagnostics: probes every enabled RSS feed in the database and
// reports which ones are healthy, redirected, empty or broken. Run it
// against a production copy before pruning feeds:
//
//	DB_PATH=data/kynews.db go run scripts/diagnose_feeds.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mmcdole/gofeed"
)

// FeedDiagnostic is the probe result for a single feed.
type FeedDiagnostic struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Status        string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT", "REDIRECT"
	HTTPCode      int    `json:"http_code"`
	ItemCount     int    `json:"item_count"`
	LatestDate    string `json:"latest_date"`
	ErrorMessage  string `json:"error_message,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	ResponseTime  int64  `json:"response_time_ms"`
	ContentLength int64  `json:"content_length"`
}

type feedRow struct {
	ID      string
	Name    string
	URL     string
	Enabled bool
}

func main() {
	path := os.Getenv("DB_PATH")
	if path == "" {
		log.Fatal("DB_PATH not set")
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	feeds, err := fetchFeeds(db)
	if err != nil {
		log.Fatalf("Failed to fetch feeds: %v", err)
	}

	log.Printf("Diagnosing %d feeds...\n", len(feeds))

	diagnostics := make([]FeedDiagnostic, 0, len(feeds))
	for i, feed := range feeds {
		log.Printf("[%d/%d] Diagnosing: %s", i+1, len(feeds), feed.Name)
		diag := diagnoseFeed(feed, 30*time.Second)
		diagnostics = append(diagnostics, diag)

		// Rate limiting to be nice to servers
		time.Sleep(500 * time.Millisecond)
	}

	printReport(diagnostics)
	writeJSONReport(diagnostics)
}

func fetchFeeds(db *sql.DB) ([]feedRow, error) {
	rows, err := db.Query(
		`SELECT id, name, url, enabled FROM feeds WHERE fetch_mode = 'rss' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var feeds []feedRow
	for rows.Next() {
		var f feedRow
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.Enabled); err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

func diagnoseFeed(feed feedRow, timeout time.Duration) FeedDiagnostic {
	diag := FeedDiagnostic{ID: feed.ID, Name: feed.Name, URL: feed.URL}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 0 {
				diag.RedirectURL = req.URL.String()
			}
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	req.Header.Set("User-Agent", "KyNewsBot/1.0 (feed diagnostics)")

	start := time.Now()
	resp, err := client.Do(req)
	diag.ResponseTime = time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			diag.Status = "TIMEOUT"
		} else {
			diag.Status = "HTTP_ERROR"
		}
		diag.ErrorMessage = err.Error()
		return diag
	}
	defer func() { _ = resp.Body.Close() }()

	diag.HTTPCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return diag
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	diag.ContentLength = int64(len(body))

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	diag.ItemCount = len(parsed.Items)
	if diag.ItemCount == 0 {
		diag.Status = "EMPTY"
		return diag
	}
	if first := parsed.Items[0]; first.PublishedParsed != nil {
		diag.LatestDate = first.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if diag.RedirectURL != "" {
		diag.Status = "REDIRECT"
		return diag
	}
	diag.Status = "OK"
	return diag
}

func printReport(diagnostics []FeedDiagnostic) {
	byStatus := make(map[string]int)
	for _, d := range diagnostics {
		byStatus[d.Status]++
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("FEED DIAGNOSTIC SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	for _, status := range []string{"OK", "REDIRECT", "EMPTY", "PARSE_ERROR", "HTTP_ERROR", "TIMEOUT"} {
		if byStatus[status] > 0 {
			fmt.Printf("%-12s %d\n", status, byStatus[status])
		}
	}
	fmt.Println(strings.Repeat("-", 60))

	for _, d := range diagnostics {
		if d.Status == "OK" {
			continue
		}
		fmt.Printf("[%s] %s (%s)\n", d.Status, d.Name, d.ID)
		fmt.Printf("  URL: %s\n", d.URL)
		if d.RedirectURL != "" {
			fmt.Printf("  Redirects to: %s\n", d.RedirectURL)
		}
		if d.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", d.ErrorMessage)
		}
	}
}

func writeJSONReport(diagnostics []FeedDiagnostic) {
	data, err := json.MarshalIndent(diagnostics, "", "  ")
	if err != nil {
		log.Printf("Failed to marshal report: %v", err)
		return
	}
	if err := os.WriteFile("feed_diagnostics.json", data, 0o644); err != nil {
		log.Printf("Failed to write report: %v", err)
		return
	}
	log.Println("Wrote feed_diagnostics.json")
}
