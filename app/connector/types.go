package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/cti-comb/app/source"
)

// UntitledPlaceholder replaces titles a payload leaves empty.
const UntitledPlaceholder = "Untitled"

// RawItem is one normalized entry produced by a connector.
type RawItem struct {
	Title       string
	Summary     string
	Content     string
	URL         string
	PublishedAt *time.Time
	Raw         json.RawMessage
}

// Connector fetches a source and normalizes its payload. Any transport or
// parse failure fails the whole fetch.
type Connector interface {
	Kind() source.Kind
	Fetch(ctx context.Context, url string, headers map[string]string, mapping source.Mapping) ([]RawItem, error)
}

var ErrUnknownKind = errors.New("no connector registered for source kind")

type Registry struct {
	connectors map[source.Kind]Connector
}

func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[source.Kind]Connector, len(connectors))}
	for _, c := range connectors {
		r.connectors[c.Kind()] = c
	}
	return r
}

// NewDefaultRegistry wires every built-in connector to one fetcher.
func NewDefaultRegistry(fetcher *Fetcher) *Registry {
	return NewRegistry(
		NewRSS(fetcher),
		NewJSONAPI(fetcher),
		NewAdvisory(fetcher),
		NewScrape(fetcher),
	)
}

func (r *Registry) Get(kind source.Kind) (Connector, error) {
	c, ok := r.connectors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return c, nil
}

func finalize(item RawItem, sourceURL string) RawItem {
	if item.Title == "" {
		item.Title = UntitledPlaceholder
	}
	if item.URL == "" {
		item.URL = sourceURL
	}
	return item
}

func rawJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
