package piaotian

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/novelcrawl/piaotian/internal/html"
	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/sirupsen/logrus"
)

// brokenFontScript replaces the opening tag of the content container on
// chapter pages, leaving the text without a parent element.
const brokenFontScript = `<script language="javascript">GetFont();</script>`

var chapterHeaders = map[string]string{
	"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9",
}

// DownloadChapterBody fetches a chapter and returns its text. The whole
// fetch and extract sequence is retried, so layout glitches are covered as
// well as transport failures.
func (c *Crawler) DownloadChapterBody(chapter models.Chapter) (string, error) {
	var text string
	err := c.retry.Do(func(attempt int) error {
		body, err := c.fetchChapter(chapter)
		if err != nil {
			return err
		}
		text = body
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chapter %d (%s): %w", chapter.ID, chapter.URL, err)
	}
	return text, nil
}

func (c *Crawler) fetchChapter(chapter models.Chapter) (string, error) {
	if slept := c.limiter.Wait(); slept > 0 {
		c.log.WithField("slept", slept.Round(time.Millisecond)).Debug("rate limited")
	}
	resp, err := c.client.GetPage(chapter.URL, chapterHeaders)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Body) == "" {
		return "", ErrEmptyResponse
	}

	return c.extractChapter(resp.Body)
}

// extractChapter pulls the chapter text out of a decoded chapter page
func (c *Crawler) extractChapter(raw string) (string, error) {
	raw = strings.ReplaceAll(raw, brokenFontScript, `<div id="content">`)

	page, err := html.ParsePage(raw)
	if err != nil {
		return "", err
	}

	body, err := page.SelectOne("div#content")
	if errors.Is(err, html.ErrNotFound) {
		return "", ErrContentMissing
	}
	if err != nil {
		return "", err
	}

	removed := html.Remove(body, "h1", "script", "div", "table")
	text := c.cleaner.ExtractContents(body)

	c.log.WithFields(logrus.Fields{
		"removed": removed,
		"runes":   len([]rune(text)),
	}).Debug("chapter extracted")

	return text, nil
}
