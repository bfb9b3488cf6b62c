package adapters

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
	"maps-scraper/utils"
)

// Providers lists the supported providers in default priority order.
var Providers = []string{GoogleName, YandexName}

// NewAdapter opens a browser session and wraps it in the named provider's
// adapter. The caller owns the adapter and must Close it.
func NewAdapter(name string, config *types.Config, logger types.Logger) (types.ProviderAdapter, error) {
	if !isProvider(name) {
		return nil, scrapeerrors.NewConfiguration(fmt.Sprintf("unknown provider %q", name), nil)
	}

	logger = withProvider(logger, name)
	session, err := utils.OpenBrowserSession(config, logger, name)
	if err != nil {
		return nil, err
	}
	return NewAdapterWithSession(name, config, logger, session)
}

// NewAdapterWithSession wraps an existing session in the named provider's
// adapter.
func NewAdapterWithSession(name string, config *types.Config, logger types.Logger, session types.Session) (types.ProviderAdapter, error) {
	switch name {
	case GoogleName:
		return NewGoogleAdapter(config, logger, session), nil
	case YandexName:
		return NewYandexAdapter(config, logger, session), nil
	default:
		return nil, scrapeerrors.NewConfiguration(fmt.Sprintf("unknown provider %q", name), nil)
	}
}

// ParseProviders splits a comma-separated provider list, keeping the given
// order and dropping repeats. An empty list selects every provider.
func ParseProviders(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return append([]string(nil), Providers...), nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		if !isProvider(name) {
			return nil, scrapeerrors.NewConfiguration(fmt.Sprintf("unknown provider %q, expected one of %s", name, strings.Join(Providers, ", ")), nil)
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return append([]string(nil), Providers...), nil
	}
	return names, nil
}

func isProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

func withProvider(logger types.Logger, name string) types.Logger {
	if fl, ok := logger.(logrus.FieldLogger); ok {
		return fl.WithField("provider", name)
	}
	return logger
}
