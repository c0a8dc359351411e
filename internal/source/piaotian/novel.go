package piaotian

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/novelcrawl/piaotian/internal/html"
	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	coverTemplate     = "%sfiles/article/image/%s/%s/%ss.jpg"
	chaptersPerVolume = 100
)

var novelIDs = regexp.MustCompile(`/html/(\d+)/(\d+)/`)

// NormalizeNovelURL turns a book info URL into the chapter list URL:
//
//	https://www.piaotia.com/bookinfo/8/8866.html -> https://www.piaotia.com/html/8/8866/
//	https://www.piaotia.com/html/8/8866/index.html -> https://www.piaotia.com/html/8/8866/
func NormalizeNovelURL(raw string) string {
	u := strings.TrimSpace(raw)
	if strings.Contains(u, "/bookinfo/") {
		u = strings.Replace(u, "/bookinfo/", "/html/", 1)
		u = strings.TrimSuffix(u, ".html")
	}
	u = strings.TrimSuffix(u, "index.html")
	return utils.EnsureTrailingSlash(u)
}

// CoverURL derives the cover image of a novel from the two ids in its chapter list URL
func CoverURL(home, novelURL string) (string, error) {
	m := novelIDs.FindStringSubmatch(NormalizeNovelURL(novelURL))
	if m == nil {
		return "", fmt.Errorf("no novel ids in %s", novelURL)
	}
	return fmt.Sprintf(coverTemplate, utils.EnsureTrailingSlash(home), m[1], m[2], m[2]), nil
}

// ReadNovelInfo fetches the chapter list page and extracts metadata and chapters
func (c *Crawler) ReadNovelInfo(novelURL string) (*models.Novel, error) {
	novelURL = NormalizeNovelURL(novelURL)

	c.limiter.Wait()
	resp, err := c.client.GetPage(novelURL, nil)
	if err != nil {
		return nil, utils.WrapError(err, "fetch novel info")
	}

	page, err := html.ParsePage(resp.Body)
	if err != nil {
		return nil, err
	}

	novel := &models.Novel{URL: novelURL}

	title, err := page.SelectOne("div.title")
	if err != nil {
		return nil, fmt.Errorf("novel title: %w", err)
	}
	novel.Title = strings.TrimSpace(strings.ReplaceAll(title.Text(), "最新章节", ""))
	c.log.WithField("title", novel.Title).Info("novel title")

	author, err := page.SelectOne("div.list")
	if err != nil {
		return nil, fmt.Errorf("novel author: %w", err)
	}
	author.Find("a").First().Remove()
	novel.Author = strings.TrimSpace(strings.ReplaceAll(author.Text(), "作者：", ""))
	c.log.WithField("author", novel.Author).Info("novel author")

	novel.CoverURL, err = CoverURL(c.home, novelURL)
	if err != nil {
		return nil, err
	}
	c.log.WithField("cover", novel.CoverURL).Debug("novel cover")

	page.Select("div.centent ul li a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		addChapter(novel, strings.TrimSpace(a.Text()), utils.ResolveURL(novelURL, href))
	})

	c.log.WithFields(logrus.Fields{
		"chapters": len(novel.Chapters),
		"volumes":  len(novel.Volumes),
	}).Info("table of contents loaded")

	return novel, nil
}

// addChapter appends a chapter, opening a new volume every chaptersPerVolume chapters
func addChapter(novel *models.Novel, title, chapterURL string) {
	n := len(novel.Chapters)
	id := n + 1
	volume := 1 + n/chaptersPerVolume
	if (id-1)%chaptersPerVolume == 0 {
		novel.Volumes = append(novel.Volumes, models.Volume{ID: volume})
	}
	novel.Chapters = append(novel.Chapters, models.Chapter{
		ID:     id,
		Volume: volume,
		Title:  title,
		URL:    chapterURL,
	})
}
