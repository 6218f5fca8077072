package fetcher

import (
	"math/rand/v2"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
}

const acceptLanguage = "en-GB,en;q=0.9"

// stealthScript runs before any page script in every new document.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-GB', 'en']});
window.chrome = window.chrome || {runtime: {}};
const origQuery = window.navigator.permissions && window.navigator.permissions.query;
if (origQuery) {
	window.navigator.permissions.query = (p) => p && p.name === 'notifications'
		? Promise.resolve({state: Notification.permission})
		: origQuery(p);
}
document.addEventListener('DOMContentLoaded', () => {
	document.dispatchEvent(new MouseEvent('mousemove', {
		clientX: Math.random() * window.innerWidth,
		clientY: Math.random() * window.innerHeight,
	}));
});
`

const randomScrollJS = `(() => {
	window.scrollTo(0, Math.random() * (document.body ? document.body.scrollHeight : 0));
	return true;
})()`

func randomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

func randomViewport() (int, int) {
	return 1024 + rand.IntN(1920-1024+1), 768 + rand.IntN(1080-768+1)
}

// randomBetween returns a duration in [lo, hi].
func randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
