package piaotian

import (
	"fmt"
	"strings"

	"github.com/novelcrawl/piaotian/internal/html"
	sitehttp "github.com/novelcrawl/piaotian/internal/http"
	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	searchPath  = "modules/article/search.php"
	submitLabel = " 搜 索 "
)

// Search looks up novels by title. A unique hit makes the site redirect to the
// book info page, which yields a single result pointing at that page.
func (c *Crawler) Search(query string) ([]models.SearchResult, error) {
	body, err := searchForm(query)
	if err != nil {
		return nil, err
	}

	searchURL := c.home + searchPath
	headers := map[string]string{
		"Origin":  strings.TrimSuffix(c.home, "/"),
		"Referer": searchURL,
	}

	c.limiter.Wait()
	resp, err := c.client.PostForm(searchURL, body, headers)
	if err != nil {
		return nil, utils.WrapError(err, "search "+query)
	}

	page, err := html.ParsePage(resp.Body)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(resp.URL, c.home+"bookinfo/") {
		result, err := parseBookInfoHit(page, resp.URL)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		c.log.WithField("url", resp.URL).Debug("search redirected to book info")
		return []models.SearchResult{result}, nil
	}

	results, err := c.parseResultTable(page)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	c.log.WithFields(logrus.Fields{"query": query, "results": len(results)}).Info("search finished")
	return results, nil
}

// searchForm builds the GBK encoded form body expected by the search endpoint
func searchForm(query string) (string, error) {
	key, err := sitehttp.QueryEscapeGBK(query)
	if err != nil {
		return "", utils.WrapError(err, "encode query")
	}
	submit, err := sitehttp.QueryEscapeGBK(submitLabel)
	if err != nil {
		return "", utils.WrapError(err, "encode submit label")
	}
	return "searchtype=articlename&searchkey=" + key + "&Submit=" + submit, nil
}

func parseBookInfoHit(page *html.Page, infoURL string) (models.SearchResult, error) {
	title, err := page.SelectOne("div#content table table table h1")
	if err != nil {
		return models.SearchResult{}, err
	}

	authorCell, err := page.SelectAt("div#content table tr td[width]", 2)
	if err != nil {
		return models.SearchResult{}, err
	}
	author := strings.ReplaceAll(authorCell.Text(), "\u00a0", "")
	author = strings.TrimSpace(strings.ReplaceAll(author, "作 者：", ""))

	return models.SearchResult{
		Title: html.Text(title),
		URL:   infoURL,
		Info:  "Author: " + author,
	}, nil
}

func (c *Crawler) parseResultTable(page *html.Page) ([]models.SearchResult, error) {
	rows := page.Select("div#content table tr")

	results := make([]models.SearchResult, 0, rows.Length())
	for i := 1; i < rows.Length(); i++ {
		row := rows.Eq(i)

		link, err := html.SelectOne(row, "td a")
		if err != nil {
			return nil, fmt.Errorf("result row %d: %w", i, err)
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return nil, fmt.Errorf("result row %d: %w: author cell", i, html.ErrNotFound)
		}
		href, _ := link.Attr("href")

		results = append(results, models.SearchResult{
			Title: html.Text(link),
			URL:   utils.ResolveURL(c.home, href),
			Info:  "Author: " + html.Text(cells.Eq(2)),
		})
	}
	return results, nil
}
