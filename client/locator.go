package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Daskott/lifealert/server/dispatch"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

const DEFAULT_IP_LOCATOR_URL = "https://ipapi.co/json/"

var ErrNoFix = errors.New("no position in geolocation response")

// Locator produces a single position fix
type Locator interface {
	Locate(ctx context.Context) (dispatch.Location, error)
}

// StaticLocator always reports the same coordinates
type StaticLocator struct {
	Latitude  float64
	Longitude float64
}

func (l StaticLocator) Locate(ctx context.Context) (dispatch.Location, error) {
	return dispatch.Location{Latitude: l.Latitude, Longitude: l.Longitude}, nil
}

// IPLocator asks an IP geolocation service for the device's approximate
// position. Every call does a fresh lookup.
type IPLocator struct {
	url        string
	httpClient *http.Client
}

func NewIPLocator(url string) *IPLocator {
	if url == "" {
		url = DEFAULT_IP_LOCATOR_URL
	}

	return &IPLocator{url: url, httpClient: cleanhttp.DefaultClient()}
}

func (l *IPLocator) Locate(ctx context.Context) (dispatch.Location, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", l.url, nil)
	if err != nil {
		return dispatch.Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return dispatch.Location{}, errors.Wrap(err, "geolocation lookup")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dispatch.Location{}, errors.Errorf("geolocation lookup: unexpected status %v", resp.StatusCode)
	}

	fix := struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		return dispatch.Location{}, errors.Wrap(err, "decode geolocation response")
	}

	if fix.Latitude == nil || fix.Longitude == nil {
		return dispatch.Location{}, ErrNoFix
	}

	return dispatch.Location{Latitude: *fix.Latitude, Longitude: *fix.Longitude}, nil
}
