package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-prayer/internal/config"
)

// Provider defines the contract for retrieving one day of prayer times.
// This interface allows for mocking in tests and decoupling from the network layer.
type Provider interface {
	Fetch(ctx context.Context, date time.Time, loc LocationSpec) (PrayerDay, error)
}

// HTTPProvider implements Provider against an Aladhan-compatible REST API.
// It is stateless and safe for concurrent use.
type HTTPProvider struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPProvider creates a new instance of HTTPProvider with configured timeouts.
// An empty baseURL selects config.DefaultProviderURL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	if baseURL == "" {
		baseURL = config.DefaultProviderURL
	}
	return &HTTPProvider{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Fetch retrieves the prayer day for date at loc.
// Every failure (network, status, decoding, missing field) is reported as ErrFetchFailed.
func (p *HTTPProvider) Fetch(ctx context.Context, date time.Time, loc LocationSpec) (PrayerDay, error) {
	endpoint, err := p.buildURL(date, loc)
	if err != nil {
		return PrayerDay{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	// Query parameters carry the user's location, keep them out of the logs.
	u, _ := url.Parse(endpoint)
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompProvider),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)
	log.Debug(config.MsgFetchDay, slog.String(config.LogKeyDate, DateKey(date)))

	ctx, cancel := context.WithTimeout(ctx, config.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PrayerDay{}, fmt.Errorf("%w: failed to create request: %w", ErrFetchFailed, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.MimeJSON)

	resp, err := p.Client.Do(req)
	if err != nil {
		return PrayerDay{}, fmt.Errorf("%w: network error during fetch: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Warn(config.MsgFetchFailed, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return PrayerDay{}, fmt.Errorf("%w: %s: %d", ErrFetchFailed, config.ErrProviderStatus, resp.StatusCode)
	}

	var payload providerResponse
	body := io.LimitReader(resp.Body, config.MaxProviderBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return PrayerDay{}, fmt.Errorf("%w: %s: %w", ErrFetchFailed, config.ErrProviderDecode, err)
	}

	day, err := payload.toPrayerDay(date)
	if err != nil {
		return PrayerDay{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return day, nil
}

// buildURL assembles the per-date endpoint for either location form.
func (p *HTTPProvider) buildURL(date time.Time, loc LocationSpec) (string, error) {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if base.Scheme != config.SchemeHTTP && base.Scheme != config.SchemeHTTPS {
		return "", fmt.Errorf("%s: %s", config.ErrProtocol, base.Scheme)
	}

	q := url.Values{}
	var path string
	switch loc.Kind {
	case LocationCoordinates:
		path = config.ProviderPathCoords
		q.Set(config.QueryLatitude, strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
		q.Set(config.QueryLongitude, strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	default:
		path = config.ProviderPathCity
		q.Set(config.QueryCity, loc.City)
		q.Set(config.QueryCountry, loc.Country)
	}
	q.Set(config.QueryMethod, strconv.Itoa(loc.Method))
	q.Set(config.QuerySchool, strconv.Itoa(loc.School))

	base.Path = strings.TrimRight(base.Path, "/") + path + date.Format(config.ProviderDateLayout)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

type providerResponse struct {
	Data struct {
		Timings map[string]string `json:"timings"`
		Date    struct {
			Hijri     providerDate `json:"hijri"`
			Gregorian providerDate `json:"gregorian"`
		} `json:"date"`
	} `json:"data"`
}

type providerDate struct {
	Day   string `json:"day"`
	Month struct {
		En string `json:"en"`
	} `json:"month"`
	Year string `json:"year"`
}

func (d providerDate) label() string {
	return strings.Join([]string{d.Day, d.Month.En, d.Year}, " ")
}

func (r providerResponse) toPrayerDay(date time.Time) (PrayerDay, error) {
	timings := r.Data.Timings
	required := func(name string) (TimeOfDay, error) {
		raw, ok := timings[name]
		if !ok || raw == "" {
			return TimeOfDay{}, fmt.Errorf("%s: %s", config.ErrProviderField, name)
		}
		return ParseTimeOfDay(raw)
	}

	var (
		times PrayerTimes
		errs  []error
		err   error
	)
	times.Fajr, err = required("Fajr")
	errs = append(errs, err)
	times.Dhuhr, err = required("Dhuhr")
	errs = append(errs, err)
	times.Asr, err = required("Asr")
	errs = append(errs, err)
	times.Maghrib, err = required("Maghrib")
	errs = append(errs, err)
	times.Isha, err = required("Isha")
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return PrayerDay{}, err
	}

	// Sunrise is informational only, a bad value is dropped rather than failing the day.
	if raw, ok := timings["Sunrise"]; ok {
		if sr, err := ParseTimeOfDay(raw); err == nil {
			times.Sunrise = &sr
		}
	}

	return PrayerDay{
		Date:           DateKey(date),
		Times:          times,
		HijriLabel:     r.Data.Date.Hijri.label() + " " + config.ProviderHijriSuffix,
		GregorianLabel: r.Data.Date.Gregorian.label(),
	}, nil
}
