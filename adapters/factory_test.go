package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scrapeerrors "maps-scraper/pkg/errors"
)

func TestParseProviders(t *testing.T) {
	names, err := ParseProviders("")
	require.NoError(t, err)
	assert.Equal(t, []string{GoogleName, YandexName}, names)

	names, err = ParseProviders(" Yandex, google ,yandex")
	require.NoError(t, err)
	assert.Equal(t, []string{YandexName, GoogleName}, names)

	_, err = ParseProviders("google,bing")
	require.Error(t, err)
	assert.True(t, scrapeerrors.IsConfiguration(err))
}

func TestNewAdapterWithSession(t *testing.T) {
	config := fastConfig()
	logger := testLogger()

	google, err := NewAdapterWithSession(GoogleName, config, logger, newFakeSession(nil))
	require.NoError(t, err)
	assert.Equal(t, GoogleName, google.Name())
	assert.False(t, google.SupportsCityFilter())

	yandex, err := NewAdapterWithSession(YandexName, config, logger, newFakeSession(nil))
	require.NoError(t, err)
	assert.Equal(t, YandexName, yandex.Name())
	assert.True(t, yandex.SupportsCityFilter())

	_, err = NewAdapterWithSession("bing", config, logger, newFakeSession(nil))
	assert.Error(t, err)
}

func TestNewAdapter_UnknownProvider(t *testing.T) {
	_, err := NewAdapter("bing", fastConfig(), testLogger())
	require.Error(t, err)
	assert.True(t, scrapeerrors.IsConfiguration(err))
}
