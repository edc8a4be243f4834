package prerender

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prerender-tools/cachectl/pkg/models"
)

// Wire types for the store API. Pointer fields distinguish "absent" from
// the zero value so required fields can be enforced.

type listResponse struct {
	Success *bool         `json:"success"`
	Items   []itemPayload `json:"items"`
	Error   string        `json:"error"`
}

type itemPayload struct {
	URL        *string         `json:"url"`
	Variant    *string         `json:"variant"`
	StatusCode *int            `json:"statusCode"`
	CachedAt   json.RawMessage `json:"cachedAt"`
	ExpiresAt  json.RawMessage `json:"expiresAt"`
}

type deleteResponse struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// unknownStoreError is reported when the store says success=false without
// an error message.
const unknownStoreError = "Unknown error"

var errMissingSuccess = errors.New(`missing required field "success"`)

func decodeJSON(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// decodeList validates a listing body and converts items to entries.
// A missing variant is read as desktop for compatibility with stores that
// predate mobile renders.
func decodeList(body []byte) ([]models.CacheEntry, string, error) {
	var resp listResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, "", err
	}
	if resp.Success == nil {
		return nil, "", errMissingSuccess
	}
	if !*resp.Success {
		return nil, storeMessage(resp.Error), nil
	}

	entries := make([]models.CacheEntry, 0, len(resp.Items))
	for i, it := range resp.Items {
		if it.URL == nil || *it.URL == "" {
			return nil, "", fmt.Errorf(`items[%d]: missing required field "url"`, i)
		}
		e := models.CacheEntry{
			URL:     *it.URL,
			Variant: models.VariantDesktop,
		}
		if it.Variant != nil && *it.Variant != "" {
			e.Variant = models.Variant(strings.ToLower(*it.Variant))
		}
		if it.StatusCode != nil {
			e.StatusCode = *it.StatusCode
		}
		var err error
		if e.CachedAt, err = decodeTimestamp(it.CachedAt); err != nil {
			return nil, "", fmt.Errorf("items[%d].cachedAt: %w", i, err)
		}
		if e.ExpiresAt, err = decodeTimestamp(it.ExpiresAt); err != nil {
			return nil, "", fmt.Errorf("items[%d].expiresAt: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, "", nil
}

// decodeDelete validates a delete body. It returns the store's error message
// when success is false.
func decodeDelete(body []byte) (string, error) {
	var resp deleteResponse
	if err := decodeJSON(body, &resp); err != nil {
		return "", err
	}
	if resp.Success == nil {
		return "", errMissingSuccess
	}
	if !*resp.Success {
		return storeMessage(resp.Error), nil
	}
	return "", nil
}

func storeMessage(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return unknownStoreError
	}
	return msg
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// decodeTimestamp accepts ISO-8601 strings or epoch milliseconds. Strings in
// an unknown layout are kept raw rather than rejected.
func decodeTimestamp(raw json.RawMessage) (models.Timestamp, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return models.Timestamp{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return models.Timestamp{}, err
		}
		ts := models.Timestamp{Raw: s}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				ts.Time = t
				break
			}
		}
		return ts, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return models.Timestamp{}, fmt.Errorf("expected string or epoch milliseconds, got %s", raw)
	}
	return models.Timestamp{Time: time.UnixMilli(ms).UTC(), Raw: string(raw)}, nil
}
