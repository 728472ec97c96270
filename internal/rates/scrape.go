package rates

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// Public pages the scraper reads by default.
const (
	StatusInvestCDI = "https://statusinvest.com.br/indices/cdi"
	IBGEInflation   = "https://www.ibge.gov.br/explica/inflacao.php"
)

// Scraper reads CDI from statusinvest and 12-month IPCA from IBGE concurrently.
type Scraper struct {
	CDIURL  string
	IPCAURL string
	Client  *http.Client
}

func NewScraper(c *http.Client) *Scraper {
	return &Scraper{CDIURL: StatusInvestCDI, IPCAURL: IBGEInflation, Client: c}
}

func (s *Scraper) Fetch(ctx context.Context) (Rates, error) {
	var r Rates
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := s.page(gctx, s.CDIURL)
		if err != nil {
			return fmt.Errorf("cdi: %w", err)
		}
		v, err := percent(doc.Find("strong.value").First().Text())
		if err != nil {
			return fmt.Errorf("cdi: %w", err)
		}
		r.CDI = v
		return nil
	})
	g.Go(func() error {
		doc, err := s.page(gctx, s.IPCAURL)
		if err != nil {
			return fmt.Errorf("ipca: %w", err)
		}
		var text string
		doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if strings.Contains(h.Text(), "IPCA acumulado de 12 meses") {
				text = h.NextFiltered("p.variavel-dado").Text()
				return false
			}
			return true
		})
		v, err := percent(text)
		if err != nil {
			return fmt.Errorf("ipca: %w", err)
		}
		r.IPCA = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return Rates{}, err
	}
	return r, nil
}

func (s *Scraper) page(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	resp, err := client(s.Client).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func percent(text string) (float64, error) {
	t := strings.TrimSpace(strings.ReplaceAll(text, "%", ""))
	t = strings.Replace(t, ",", ".", 1)
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	return v, nil
}
