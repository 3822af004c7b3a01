package rod

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	viewportWidth  = 1920
	viewportHeight = 1080

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// antiAutomationScript runs before any page script and removes the most
// common headless fingerprints.
const antiAutomationScript = `(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
  Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
  window.chrome = window.chrome || { runtime: {} };
  Object.defineProperty(screen, 'width', { get: () => 1920 });
  Object.defineProperty(screen, 'height', { get: () => 1080 });
  Object.defineProperty(screen, 'availWidth', { get: () => 1920 });
  Object.defineProperty(screen, 'availHeight', { get: () => 1040 });
})();`

func harden(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(antiAutomationScript); err != nil {
		return fmt.Errorf("install init script: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      desktopUserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
		Platform:       "Win32",
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	return nil
}
