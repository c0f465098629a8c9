// Package bancentral integrates with the Dominican central bank's
// published interest-rate statistics. The service only uses the feed for
// the informational /reference-rate endpoint; the projection rate itself
// comes from configuration.
package bancentral

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/ines-sys/real-bank-api-retfull/internal/config"
)

// Client handles integration with the central bank rate feed
type Client struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new rate feed client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url: cfg.RateFeedURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// fetch retrieves the raw XML rate document
func (c *Client) fetch() ([]byte, error) {
	req, err := http.NewRequest("GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	c.log.Debugf("Rate feed XML response: %s", string(body))

	return body, nil
}

// parseRate extracts the deposit-certificate rate from the XML document
func parseRate(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	elements := doc.FindElements("//tasas/tasa[@instrumento='certificados']")
	if len(elements) == 0 {
		return 0, fmt.Errorf("no certificate rate found in XML")
	}

	// The feed lists the most recent observation first.
	valueElement := elements[0].FindElement("./valor")
	if valueElement == nil {
		return 0, fmt.Errorf("rate value not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(valueElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %v", err)
	}

	return rate, nil
}

// GetReferenceRate retrieves the current published deposit-certificate
// rate, in percent per year.
func (c *Client) GetReferenceRate() (float64, error) {
	body, err := c.fetch()
	if err != nil {
		return 0, err
	}

	rate, err := parseRate(body)
	if err != nil {
		return 0, err
	}

	c.log.Infof("Retrieved reference rate: %.2f%%", rate)
	return rate, nil
}
