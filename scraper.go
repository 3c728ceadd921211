package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/tidwall/gjson"
)

// pageFetcher returns the rendered HTML of a listing page. Split out so
// tests can run the parsing pipeline without a browser.
type pageFetcher func(ctx context.Context, url string) (string, error)

// Scraper collects complaint listings from the public portal. The portal
// renders its content client-side, so pages go through a headless browser
// and the payload comes out of the embedded __NEXT_DATA__ script.
type Scraper struct {
	baseURL string
	delay   time.Duration
	fetch   pageFetcher
}

func NewScraper(cfg Config) *Scraper {
	return &Scraper{
		baseURL: strings.TrimRight(cfg.PortalURL, "/"),
		delay:   cfg.RequestDelay(),
		fetch:   fetchRenderedPage,
	}
}

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func fetchRenderedPage(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(scraperUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(3*time.Second), // let the app hydrate
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", url, err)
	}
	return html, nil
}

func (s *Scraper) pageURL(page int) string {
	url := s.baseURL + "/lista-reclamacoes/"
	if page > 1 {
		url = fmt.Sprintf("%s?pagina=%d", url, page)
	}
	return url
}

// ScrapeAll walks listing pages until maxPages, an empty page, or a fetch
// error, whichever comes first. Partial results are still results.
func (s *Scraper) ScrapeAll(ctx context.Context, maxPages int) []Complaint {
	var all []Complaint
	for page := 1; page <= maxPages; page++ {
		url := s.pageURL(page)
		log.Printf("scraping page=%d url=%s", page, url)

		html, err := s.fetch(ctx, url)
		if err != nil {
			log.Printf("scrape fetch error page=%d: %v", page, err)
			break
		}
		nextData, ok := extractNextData(html)
		if !ok {
			log.Printf("scrape no __NEXT_DATA__ payload page=%d, stopping", page)
			break
		}
		complaints := parseComplaints(nextData, page)
		if len(complaints) == 0 {
			log.Printf("scrape empty page=%d, stopping", page)
			break
		}
		log.Printf("scraped page=%d complaints=%d", page, len(complaints))
		all = append(all, complaints...)

		if page < maxPages && s.delay > 0 {
			select {
			case <-ctx.Done():
				return all
			case <-time.After(s.delay):
			}
		}
	}
	return all
}

// extractNextData pulls the JSON body of the <script id="__NEXT_DATA__">
// tag out of a rendered page.
func extractNextData(html string) (string, bool) {
	marker := `id="__NEXT_DATA__"`
	idx := strings.Index(html, marker)
	if idx < 0 {
		return "", false
	}
	open := strings.Index(html[idx:], ">")
	if open < 0 {
		return "", false
	}
	start := idx + open + 1
	end := strings.Index(html[start:], "</script>")
	if end < 0 {
		return "", false
	}
	return html[start : start+end], true
}

var complaintStatusLabels = map[string]string{
	"PENDING":      "Aguardando resposta",
	"ANSWERED":     "Respondida",
	"EVALUATED":    "Avaliada",
	"NOT_ANSWERED": "Não respondida",
	"solved":       "Resolvido",
}

// parseComplaints reads the complaint list embedded in a page's
// __NEXT_DATA__ payload. Personal data is redacted before anything is
// stored or sent to a model.
func parseComplaints(nextData string, page int) []Complaint {
	list := gjson.Get(nextData, "props.pageProps.complaints.LAST")
	if !list.Exists() || !list.IsArray() {
		return nil
	}

	var complaints []Complaint
	for i, item := range list.Array() {
		id := item.Get("id").String()
		if id == "" {
			id = fmt.Sprintf("PAGE%d_ITEM%d", page, i)
		}
		status := item.Get("status").String()
		if label, ok := complaintStatusLabels[status]; ok {
			status = label
		}
		complaints = append(complaints, Complaint{
			ID:         "COMPLAINT_" + id,
			Title:      redactPII(item.Get("title").String()),
			Text:       redactPII(stripHTMLTags(item.Get("description").String())),
			OpenedAt:   item.Get("created").String(),
			Status:     status,
			PublicLink: item.Get("url").String(),
		})
	}
	return complaints
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func stripHTMLTags(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, " "))
}

// piiPatterns are applied in order; the name pattern goes first so it
// cannot clobber the other placeholders.
var piiPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\b[A-Z][a-zÀ-ÿ]+(?:\s+[A-Z][a-zÀ-ÿ]+)+\b`), "[NOME]"},
	{regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`), "[CPF]"},
	{regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`), "[CNPJ]"},
	{regexp.MustCompile(`(?:\+?55\s?)?\(?\d{2}\)?\s?\d{4,5}[-\s]?\d{4}\b`), "[TELEFONE]"},
	{regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`), "[EMAIL]"},
	{regexp.MustCompile(`\b[A-Z]{3}-?\d[A-Z0-9]\d{2}\b`), "[PLACA]"},
	{regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`), "[CHASSI]"},
	{regexp.MustCompile(`(?i)\b(?:protocolo|atendimento|pedido)\s*(?:n[º°o.]*\s*)?[:#]?\s*\d{5,}\b`), "[PROTOCOLO]"},
}

func redactPII(text string) string {
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, p.replacement)
	}
	return text
}

// runPhase1 collects complaints from the portal, writes the raw JSON
// artifact and records the new ones in the local database.
func runPhase1(cfg Config) error {
	printBanner("PHASE 1: COMPLAINT COLLECTION")
	requirePortalConfig(cfg)

	scraper := NewScraper(cfg)
	fmt.Printf("Scraping up to %d pages from %s...\n", cfg.MaxPages, cfg.PortalURL)
	complaints := scraper.ScrapeAll(context.Background(), cfg.MaxPages)
	if len(complaints) == 0 {
		return fmt.Errorf("no complaints collected from %s", cfg.PortalURL)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := writeJSONFile(cfg.ComplaintsFile(), complaints); err != nil {
		return err
	}
	fmt.Printf("Collected %d complaints, saved to %s\n", len(complaints), cfg.ComplaintsFile())

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Printf("complaint db error: %v", err)
		return nil
	}
	defer db.Close()

	inserted, err := InsertComplaints(db, complaints)
	if err != nil {
		log.Printf("complaint db insert error: %v", err)
		return nil
	}
	total, _ := CountComplaints(db)
	fmt.Printf("Database: %d new complaints recorded (total %d)\n", inserted, total)
	return nil
}
