package probe

import (
	"context"
	"errors"
	"fmt"
)

// SiteNamer is implemented by the MediaWiki client.
type SiteNamer interface {
	SiteName(ctx context.Context) (string, error)
}

// Pinger runs a trivial request against a service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MediaWiki checks that the action API answers with a site name.
func MediaWiki(c SiteNamer) Probe {
	return Probe{
		Name:     "MediaWiki API",
		Critical: true,
		Check: func(ctx context.Context) error {
			name, err := c.SiteName(ctx)
			if err != nil {
				return err
			}
			if name == "" {
				return errors.New("empty sitename in siteinfo response")
			}
			return nil
		},
	}
}

// SPARQL checks that the query service answers. Failures only warn: the
// per-page query reports its own error.
func SPARQL(p Pinger) Probe {
	return Probe{
		Name:     "Wikidata SPARQL",
		Critical: false,
		Check: func(ctx context.Context) error {
			if err := p.Ping(ctx); err != nil {
				return fmt.Errorf("query service unreachable: %w", err)
			}
			return nil
		},
	}
}
