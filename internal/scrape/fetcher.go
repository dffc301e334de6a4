package scrape

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const fetcherUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFetcher grabs a page over plain HTTP. The on-demand lookup tries
// this before paying for a browser round trip; it only helps when the
// portal served the detail markup server-side, which the caller verifies
// by checking the extracted reference number.
type StaticFetcher struct {
	UserAgent string
	Timeout   time.Duration
}

func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		UserAgent: fetcherUserAgent,
		Timeout:   20 * time.Second,
	}
}

// FetchHTML returns the raw response body for url.
func (f *StaticFetcher) FetchHTML(url string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.Timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("static fetch of %s: %w", url, err)
	}
	c.Wait()

	if len(body) == 0 {
		return "", fmt.Errorf("static fetch of %s: empty body", url)
	}
	return string(body), nil
}
