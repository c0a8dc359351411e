package utils

import (
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path"
	"strings"
)

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ResolveURL resolves a relative URL against a base URL
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if IsAbsoluteURL(href) {
		return href
	}
	if base == "" {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// IsAbsoluteURL checks if a URL is absolute
func IsAbsoluteURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// EnsureTrailingSlash appends a slash to raw unless it already ends with one
func EnsureTrailingSlash(raw string) string {
	if strings.HasSuffix(raw, "/") {
		return raw
	}
	return raw + "/"
}

// FileExtFromURL returns the extension of the last path segment of a URL
func FileExtFromURL(raw string) string {
	if parsed, err := url.Parse(raw); err == nil {
		return path.Ext(parsed.Path)
	}
	return path.Ext(StripQueryFragment(raw))
}

// StripQueryFragment removes query parameters and fragments from a URL
func StripQueryFragment(link string) string {
	if idx := strings.IndexAny(link, "?#"); idx >= 0 {
		return link[:idx]
	}
	return link
}

// EscapeDirname replaces characters that are invalid in directory names,
// including their full-width forms common in Chinese titles
func EscapeDirname(name string) string {
	replacer := strings.NewReplacer(
		"~", "_", "#", "_", "%", "_", "&", "_", "*", "_",
		"{", "_", "}", "_", "\\", "_", "<", "_", ">", "_",
		"?", "_", "/", "_", "`", "_", "'", "_", `"`, "_",
		"|", "_", "+", "_", ":", "_",
		"：", "_", "？", "_", "＊", "_", "｜", "_", "／", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}

// J2TeamCookie represents a cookie in J2Team Cookies format
type J2TeamCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HttpOnly bool   `json:"httpOnly"`
	SameSite string `json:"sameSite"`
}

// J2TeamCookiesFile represents the J2Team Cookies export format
type J2TeamCookiesFile struct {
	URL     string         `json:"url"`
	Cookies []J2TeamCookie `json:"cookies"`
}

// BrowserCookie represents a cookie in browser extension export format
type BrowserCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	HostOnly bool   `json:"hostOnly"`
	Session  bool   `json:"session"`
}

// LoadCookies loads cookies from a JSON file and auto-detects the format.
// Supports Cookie-Editor (flat JSON), J2Team and browser extension exports.
func LoadCookies(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var j2team J2TeamCookiesFile
	if err := json.Unmarshal(data, &j2team); err == nil && len(j2team.Cookies) > 0 {
		cookies := make(map[string]string, len(j2team.Cookies))
		for _, cookie := range j2team.Cookies {
			cookies[cookie.Name] = cookie.Value
		}
		return cookies, nil
	}

	var browserCookies []BrowserCookie
	if err := json.Unmarshal(data, &browserCookies); err == nil && len(browserCookies) > 0 {
		cookies := make(map[string]string, len(browserCookies))
		for _, cookie := range browserCookies {
			cookies[cookie.Name] = cookie.Value
		}
		return cookies, nil
	}

	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, errors.New("unsupported cookie format: unable to parse as J2Team, browser extension, or Cookie-Editor format")
	}

	if len(cookies) == 0 {
		return nil, errors.New("cookies file is empty")
	}

	return cookies, nil
}
