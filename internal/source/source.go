// Package source defines the contract every site adapter fulfils for the crawler host.
package source

import "github.com/novelcrawl/piaotian/internal/models"

// Crawler locates a book on a site, lists its chapters and extracts chapter text.
// Implementations are not safe for concurrent use.
type Crawler interface {
	// Search returns the books matching query, in site order
	Search(query string) ([]models.SearchResult, error)
	// ReadNovelInfo fetches metadata and the table of contents of a book
	ReadNovelInfo(novelURL string) (*models.Novel, error)
	// DownloadChapterBody returns the plain text of a chapter
	DownloadChapterBody(chapter models.Chapter) (string, error)
	// BaseURLs lists the mirrors the adapter can serve
	BaseURLs() []string
}
