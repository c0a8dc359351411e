// Package downloader drives a source adapter to save a whole novel as plain text.
package downloader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/novelcrawl/piaotian/internal/source"
	"github.com/novelcrawl/piaotian/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultBooksDir = "Books"
	defaultCoverExt = ".jpg"
	// BrokenPlaceholder replaces the text of chapters that could not be fetched
	BrokenPlaceholder = "[chapter unavailable]"
)

// coverFetcher is implemented by adapters that can download cover images
type coverFetcher interface {
	DownloadCover(coverURL string) ([]byte, error)
}

// Options configures a Downloader
type Options struct {
	BooksDir   string
	Range      string
	SkipBroken bool
	// Progress receives the progress bar; nil disables it
	Progress io.Writer
	Logger   logrus.FieldLogger
}

// Downloader fetches the chapters of a novel one by one and writes them to disk
type Downloader struct {
	crawler    source.Crawler
	booksDir   string
	rng        string
	skipBroken bool
	progress   io.Writer
	log        logrus.FieldLogger
}

// Result describes what a run produced
type Result struct {
	Novel    *models.Novel
	Dir      string
	TextPath string
	Chapters int
	Broken   int
}

func NewDownloader(crawler source.Crawler, opts Options) (*Downloader, error) {
	booksDir := opts.BooksDir
	if booksDir == "" {
		booksDir = defaultBooksDir
	}
	if _, err := ParseRange(opts.Range); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(booksDir, 0755); err != nil {
		return nil, fmt.Errorf("create books directory: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Downloader{
		crawler:    crawler,
		booksDir:   booksDir,
		rng:        opts.Range,
		skipBroken: opts.SkipBroken,
		progress:   opts.Progress,
		log:        log,
	}, nil
}

func (d *Downloader) Run(novelURL string) (*Result, error) {
	d.log.Info("retrieving novel info")
	novel, err := d.crawler.ReadNovelInfo(novelURL)
	if err != nil {
		return nil, err
	}

	chapters, err := SelectChapters(novel.Chapters, d.rng)
	if err != nil {
		return nil, err
	}

	bookPath, err := d.createBookDirectory(novel)
	if err != nil {
		return nil, err
	}

	d.downloadCover(novel, bookPath)

	textPath := filepath.Join(bookPath, filepath.Base(bookPath)+".txt")
	d.log.WithFields(logrus.Fields{
		"chapters": len(chapters),
		"file":     textPath,
	}).Info("downloading chapters")

	broken, err := d.downloadChapters(novel, chapters, textPath)
	if err != nil {
		return nil, err
	}

	d.log.WithField("file", textPath).Info("done")
	return &Result{
		Novel:    novel,
		Dir:      bookPath,
		TextPath: textPath,
		Chapters: len(chapters),
		Broken:   broken,
	}, nil
}

func (d *Downloader) createBookDirectory(novel *models.Novel) (string, error) {
	title := utils.EscapeDirname(novel.Title)
	if title == "" {
		title = "untitled"
	}

	bookPath := filepath.Join(d.booksDir, title)
	if err := os.MkdirAll(bookPath, 0755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", bookPath, err)
	}
	return bookPath, nil
}

// downloadCover saves the cover next to the text file. Failures are only logged.
func (d *Downloader) downloadCover(novel *models.Novel, bookPath string) {
	fetcher, ok := d.crawler.(coverFetcher)
	if !ok || novel.CoverURL == "" {
		return
	}

	ext := utils.FileExtFromURL(novel.CoverURL)
	if ext == "" {
		ext = defaultCoverExt
	}
	path := filepath.Join(bookPath, "cover"+ext)
	if utils.FileExists(path) {
		d.log.WithField("file", path).Debug("cover already exists")
		return
	}

	data, err := fetcher.DownloadCover(novel.CoverURL)
	if err != nil {
		d.log.WithField("url", novel.CoverURL).Warnf("failed to download cover: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		d.log.WithField("file", path).Warnf("failed to save cover: %v", err)
		return
	}
	d.log.WithField("file", path).Info("cover saved")
}

func (d *Downloader) downloadChapters(novel *models.Novel, chapters []models.Chapter, textPath string) (int, error) {
	f, err := os.Create(textPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", textPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	writeHeader(w, novel)

	bar := newProgressBar(d.progress, novel.Title, len(chapters))
	broken := 0
	volume := 0
	for _, chapter := range chapters {
		text, err := d.crawler.DownloadChapterBody(chapter)
		if err != nil {
			if !d.skipBroken {
				bar.Abort()
				_ = w.Flush()
				return broken, err
			}
			broken++
			d.log.WithField("chapter", chapter.ID).Warnf("skipping broken chapter: %v", err)
			text = BrokenPlaceholder
		}

		if chapter.Volume != volume {
			volume = chapter.Volume
			fmt.Fprintf(w, "\n\nVolume %d\n", volume)
		}
		writeChapter(w, chapter, text)
		bar.Increment()
	}
	bar.Wait()

	if err := w.Flush(); err != nil {
		return broken, fmt.Errorf("write %s: %w", textPath, err)
	}
	return broken, nil
}

func writeHeader(w io.Writer, novel *models.Novel) {
	fmt.Fprintln(w, novel.Title)
	if novel.Author != "" {
		fmt.Fprintf(w, "作者：%s\n", novel.Author)
	}
	fmt.Fprintln(w, novel.URL)
}

func writeChapter(w io.Writer, chapter models.Chapter, text string) {
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(chapter.Title))
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w, "　　%s\n", line)
	}
}
