package media

import "strings"

// platformHosts maps hostname fragments to the platform slug the rest
// of the engine keys rate limits and ratio defaults on.
var platformHosts = []struct {
	fragment string
	platform string
}{
	{"tiktok.com", "tiktok"},
	{"douyin.com", "douyin"},
	{"youtube.com", "youtube"},
	{"youtu.be", "youtube"},
	{"facebook.com", "facebook"},
	{"fb.watch", "facebook"},
	{"instagram.com", "instagram"},
	{"twitter.com", "twitter"},
	{"x.com", "twitter"},
}

// platformRatios is the default output aspect ratio per target
// platform.
var platformRatios = map[string]string{
	"tiktok":    "9:16",
	"douyin":    "9:16",
	"instagram": "9:16",
	"youtube":   "16:9",
	"facebook":  "1:1",
	"twitter":   "16:9",
}

// DetectPlatform classifies a source URL by hostname. References that
// match no known host (including local paths) come back as "generic".
func DetectPlatform(sourceRef string) string {
	ref := strings.ToLower(strings.TrimSpace(sourceRef))
	for _, h := range platformHosts {
		if strings.Contains(ref, h.fragment) {
			return h.platform
		}
	}
	return "generic"
}

// DefaultRatioFor returns the conventional output ratio for a target
// platform, falling back to vertical video.
func DefaultRatioFor(platform string) string {
	if r, ok := platformRatios[strings.ToLower(strings.TrimSpace(platform))]; ok {
		return r
	}
	return "9:16"
}
