package fxrate

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/revport/internal/money"
)

// The ECB publishes euro foreign-exchange reference rates for business days as
// a nested XML cube: one <Cube time="..."> per date, one <Cube currency=""
// rate=""> per currency inside it.

type ecbEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Days    []ecbDay `xml:"Cube>Cube"`
}

type ecbDay struct {
	Time  string    `xml:"time,attr"`
	Rates []ecbRate `xml:"Cube"`
}

type ecbRate struct {
	Currency string `xml:"currency,attr"`
	Rate     string `xml:"rate,attr"`
}

func fetchECBRates(ctx context.Context, client *http.Client, url string) (map[string]map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return parseECBRates(body)
}

func parseECBRates(body []byte) (map[string]map[string]decimal.Decimal, error) {
	var envelope ecbEnvelope
	if err := xml.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse rate envelope: %w", err)
	}
	if len(envelope.Days) == 0 {
		return nil, fmt.Errorf("parse rate envelope: missing time cubes")
	}

	ratesByDate := make(map[string]map[string]decimal.Decimal, len(envelope.Days))
	for _, day := range envelope.Days {
		if day.Time == "" {
			continue
		}

		rates := make(map[string]decimal.Decimal, len(day.Rates)+1)
		rates[anchorCurrency] = decimal.NewFromInt(1)

		for _, entry := range day.Rates {
			code := money.Normalize(entry.Currency)
			if code == "" {
				continue
			}
			rate, err := decimal.NewFromString(entry.Rate)
			if err != nil || rate.Sign() <= 0 {
				continue
			}
			rates[code] = rate
		}

		ratesByDate[day.Time] = rates
	}

	if len(ratesByDate) == 0 {
		return nil, fmt.Errorf("parse rate envelope: no dated snapshots")
	}
	return ratesByDate, nil
}
