package adapters

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

var _ types.Session = (*fakeSession)(nil)

// fakeSession serves canned HTML per URL and scripted scroll heights.
type fakeSession struct {
	pages     map[string]string
	container string
	heights   []int64

	navErr        error
	crashesLeft   int
	heightCalls   int
	scrolls       int
	windowScrolls int
	restarts      int
	navigations   []string
	settles       []time.Duration
	current       string
	closed        bool
}

func newFakeSession(pages map[string]string) *fakeSession {
	return &fakeSession{pages: pages}
}

func (f *fakeSession) NavigateAndSettle(url string, settle time.Duration) error {
	f.navigations = append(f.navigations, url)
	f.settles = append(f.settles, settle)
	if f.crashesLeft > 0 {
		f.crashesLeft--
		return scrapeerrors.NewSession("fake", "tab crashed", errors.New("tab crashed"))
	}
	if f.navErr != nil {
		return f.navErr
	}
	f.current = url
	return nil
}

func (f *fakeSession) ScrollHeight(selector string) (int64, bool, error) {
	if f.container == "" || selector != f.container {
		return 0, false, nil
	}
	idx := f.heightCalls
	if idx >= len(f.heights) {
		idx = len(f.heights) - 1
	}
	f.heightCalls++
	return f.heights[idx], true, nil
}

func (f *fakeSession) ScrollToBottom(selector string) error {
	if selector != f.container {
		return scrapeerrors.ErrElementNotFound
	}
	f.scrolls++
	return nil
}

func (f *fakeSession) ScrollWindowTo(int) error {
	f.windowScrolls++
	return nil
}

func (f *fakeSession) PageHTML() (string, error) {
	if html, ok := f.pages[f.current]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

func (f *fakeSession) Restart() error {
	f.restarts++
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// fastConfig returns a configuration with every pause disabled.
func fastConfig() *types.Config {
	config := types.DefaultConfig()
	config.NudgePause = 0
	config.RestartCooldown = 0
	config.Google = types.Pacing{}
	config.Yandex = types.Pacing{}
	return config
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
