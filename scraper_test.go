package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"full name", "falei com João Silva sobre o carro", "falei com [NOME] sobre o carro"},
		{"cpf", "meu cpf 123.456.789-00 foi exposto", "meu cpf [CPF] foi exposto"},
		{"cnpj", "empresa 12.345.678/0001-90 não responde", "empresa [CNPJ] não responde"},
		{"phone", "liguei no (11) 98765-4321 várias vezes", "liguei no [TELEFONE] várias vezes"},
		{"email", "enviei para suporte@empresa.com.br ontem", "enviei para [EMAIL] ontem"},
		{"plate", "veículo placa ABC-1234 parado", "veículo placa [PLACA] parado"},
		{"chassis", "chassi 9BWZZZ377VT004251 com defeito", "chassi [CHASSI] com defeito"},
		{"protocol", "abri o protocolo: 1234567 sem retorno", "abri o [PROTOCOLO] sem retorno"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := redactPII(tc.in); got != tc.want {
				t.Fatalf("redactPII(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStripHTMLTags(t *testing.T) {
	in := "<p>carro parou <b>na estrada</b></p>"
	want := "carro parou  na estrada"
	if got := stripHTMLTags(in); got != want {
		t.Fatalf("stripHTMLTags = %q, want %q", got, want)
	}
}

func nextDataPage(items string) string {
	return fmt.Sprintf(`<html><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"complaints":{"LAST":[%s]}}}}</script>
</body></html>`, items)
}

func TestExtractNextData(t *testing.T) {
	html := nextDataPage(`{"id":"1"}`)
	payload, ok := extractNextData(html)
	if !ok {
		t.Fatal("expected __NEXT_DATA__ payload")
	}
	if !strings.Contains(payload, `"LAST"`) {
		t.Fatalf("unexpected payload: %s", payload)
	}

	if _, ok := extractNextData("<html><body>nothing here</body></html>"); ok {
		t.Fatal("expected no payload for page without __NEXT_DATA__")
	}
}

func TestParseComplaints(t *testing.T) {
	payload := `{"props":{"pageProps":{"complaints":{"LAST":[
		{"id":"42","title":"Motor fundiu","description":"<p>carro de joão silva parou</p>","created":"2025-03-01","status":"ANSWERED","url":"https://portal.example/c/42"},
		{"title":"Sem retorno","description":"aguardando","created":"2025-03-02","status":"PENDING","url":""}
	]}}}}`

	complaints := parseComplaints(payload, 3)
	if len(complaints) != 2 {
		t.Fatalf("expected 2 complaints, got %d", len(complaints))
	}

	first := complaints[0]
	if first.ID != "COMPLAINT_42" {
		t.Fatalf("unexpected id: %s", first.ID)
	}
	if first.Status != "Respondida" {
		t.Fatalf("expected mapped status Respondida, got %s", first.Status)
	}
	if strings.Contains(first.Text, "<p>") {
		t.Fatalf("html not stripped: %s", first.Text)
	}

	second := complaints[1]
	if second.ID != "COMPLAINT_PAGE3_ITEM1" {
		t.Fatalf("expected positional fallback id, got %s", second.ID)
	}
	if second.Status != "Aguardando resposta" {
		t.Fatalf("expected mapped status, got %s", second.Status)
	}
}

func TestParseComplaintsMissingPath(t *testing.T) {
	if got := parseComplaints(`{"props":{"pageProps":{}}}`, 1); got != nil {
		t.Fatalf("expected nil for missing complaint list, got %+v", got)
	}
}

func TestPageURL(t *testing.T) {
	s := &Scraper{baseURL: "https://portal.example"}
	if got := s.pageURL(1); got != "https://portal.example/lista-reclamacoes/" {
		t.Fatalf("page 1 url = %s", got)
	}
	if got := s.pageURL(3); got != "https://portal.example/lista-reclamacoes/?pagina=3" {
		t.Fatalf("page 3 url = %s", got)
	}
}

func TestScrapeAllStopsOnEmptyPage(t *testing.T) {
	pages := map[int]string{
		1: nextDataPage(`{"id":"1","title":"a","description":"x","status":"PENDING"}`),
		2: nextDataPage(`{"id":"2","title":"b","description":"y","status":"PENDING"}`),
		3: nextDataPage(``),
	}
	fetched := 0
	s := &Scraper{
		baseURL: "https://portal.example",
		fetch: func(ctx context.Context, url string) (string, error) {
			fetched++
			return pages[fetched], nil
		},
	}

	complaints := s.ScrapeAll(context.Background(), 10)
	if len(complaints) != 2 {
		t.Fatalf("expected 2 complaints, got %d", len(complaints))
	}
	if fetched != 3 {
		t.Fatalf("expected to stop after the empty page, fetched=%d", fetched)
	}
}

func TestScrapeAllKeepsPartialResultsOnFetchError(t *testing.T) {
	fetched := 0
	s := &Scraper{
		baseURL: "https://portal.example",
		fetch: func(ctx context.Context, url string) (string, error) {
			fetched++
			if fetched == 2 {
				return "", fmt.Errorf("timeout")
			}
			return nextDataPage(`{"id":"1","title":"a","description":"x","status":"PENDING"}`), nil
		},
	}

	complaints := s.ScrapeAll(context.Background(), 10)
	if len(complaints) != 1 {
		t.Fatalf("expected 1 complaint from the first page, got %d", len(complaints))
	}
}

func TestScrapeAllRespectsMaxPages(t *testing.T) {
	fetched := 0
	s := &Scraper{
		baseURL: "https://portal.example",
		fetch: func(ctx context.Context, url string) (string, error) {
			fetched++
			return nextDataPage(fmt.Sprintf(`{"id":"%d","title":"a","description":"x","status":"PENDING"}`, fetched)), nil
		},
	}

	complaints := s.ScrapeAll(context.Background(), 2)
	if fetched != 2 {
		t.Fatalf("expected 2 fetches, got %d", fetched)
	}
	if len(complaints) != 2 {
		t.Fatalf("expected 2 complaints, got %d", len(complaints))
	}
}
