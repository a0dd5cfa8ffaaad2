package cep

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://viacep.com.br/ws"

// Address is the subset of the ViaCEP payload the storefront uses.
type Address struct {
	CEP          string   `json:"cep"`
	Street       string   `json:"logradouro"`
	Neighborhood string   `json:"bairro"`
	City         string   `json:"localidade"`
	State        string   `json:"uf"`
	NotFound     notFound `json:"erro"`
}

// notFound accepts both `"erro": true` and `"erro": "true"`.
type notFound bool

// UnmarshalJSON only treats true and "true" as not found. Other truthy
// values such as 1 or "yes" count as found.
func (n *notFound) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", `"true"`:
		*n = true
	default:
		*n = false
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs GET {base}/{code}/json/ and decodes the payload. Non-2xx
// responses and undecodable bodies are errors; a not-found payload is not.
func (c *Client) Fetch(ctx context.Context, code string) (Address, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Address{}, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(code) + "/json/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Address{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Address{}, fmt.Errorf("viacep: unexpected status %d", resp.StatusCode)
	}

	var addr Address
	if err := json.Unmarshal(body, &addr); err != nil {
		return Address{}, fmt.Errorf("viacep: decode: %w", err)
	}
	if string(bytes.TrimSpace(body)) == "null" {
		addr.NotFound = true
	}
	return addr, nil
}
