package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/novelcrawl/piaotian/internal/logging"
	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCrawler struct {
	novel     *models.Novel
	bodies    map[int]string
	failing   map[int]bool
	cover     []byte
	coverErr  error
	requested []int
}

func (f *fakeCrawler) Search(string) ([]models.SearchResult, error) { return nil, nil }

func (f *fakeCrawler) ReadNovelInfo(string) (*models.Novel, error) { return f.novel, nil }

func (f *fakeCrawler) DownloadChapterBody(ch models.Chapter) (string, error) {
	f.requested = append(f.requested, ch.ID)
	if f.failing[ch.ID] {
		return "", errors.New("content missing")
	}
	return f.bodies[ch.ID], nil
}

func (f *fakeCrawler) BaseURLs() []string { return []string{"https://example.test/"} }

func (f *fakeCrawler) DownloadCover(string) ([]byte, error) { return f.cover, f.coverErr }

func newFakeCrawler(chapters int) *fakeCrawler {
	f := &fakeCrawler{
		novel: &models.Novel{
			URL:      "https://example.test/html/8/8866/",
			Title:    "斗罗大陆：外传",
			Author:   "唐家三少",
			CoverURL: "https://example.test/files/article/image/8/8866/8866s.jpg",
		},
		bodies:  map[int]string{},
		failing: map[int]bool{},
		cover:   []byte("jpeg"),
	}
	for i := 1; i <= chapters; i++ {
		vol := 1 + (i-1)/100
		if (i-1)%100 == 0 {
			f.novel.Volumes = append(f.novel.Volumes, models.Volume{ID: vol})
		}
		f.novel.Chapters = append(f.novel.Chapters, models.Chapter{
			ID: i, Volume: vol, Title: "第" + strconv.Itoa(i) + "章",
		})
		f.bodies[i] = "正文" + strconv.Itoa(i) + "\n第二段"
	}
	return f
}

func newTestDownloader(t *testing.T, c *fakeCrawler, opts Options) *Downloader {
	t.Helper()
	opts.BooksDir = t.TempDir()
	opts.Logger = logging.Discard()
	d, err := NewDownloader(c, opts)
	require.NoError(t, err)
	return d
}

func TestRun_WritesTextAndCover(t *testing.T) {
	c := newFakeCrawler(102)
	d := newTestDownloader(t, c, Options{})

	res, err := d.Run(c.novel.URL)
	require.NoError(t, err)

	assert.Equal(t, 102, res.Chapters)
	assert.Zero(t, res.Broken)
	assert.Equal(t, "斗罗大陆_外传", filepath.Base(res.Dir))
	assert.Equal(t, filepath.Join(res.Dir, "斗罗大陆_外传.txt"), res.TextPath)

	b, err := os.ReadFile(res.TextPath)
	require.NoError(t, err)
	text := string(b)
	assert.True(t, strings.HasPrefix(text, "斗罗大陆：外传\n作者：唐家三少\n"))
	assert.Contains(t, text, "Volume 1\n")
	assert.Contains(t, text, "Volume 2\n")
	assert.Contains(t, text, "\n第1章\n\n　　正文1\n　　第二段\n")
	assert.Less(t, strings.Index(text, "第100章"), strings.Index(text, "Volume 2"))

	cover, err := os.ReadFile(filepath.Join(res.Dir, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), cover)
}

func TestRun_Range(t *testing.T) {
	c := newFakeCrawler(20)
	d := newTestDownloader(t, c, Options{Range: "5-12"})

	res, err := d.Run(c.novel.URL)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Chapters)
	assert.Equal(t, []int{5, 6, 7, 8, 9, 10, 11, 12}, c.requested)
}

func TestRun_AbortsOnFirstFailure(t *testing.T) {
	c := newFakeCrawler(5)
	c.failing[3] = true
	d := newTestDownloader(t, c, Options{})

	_, err := d.Run(c.novel.URL)

	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, c.requested)
}

func TestRun_SkipBroken(t *testing.T) {
	c := newFakeCrawler(5)
	c.failing[3] = true
	d := newTestDownloader(t, c, Options{SkipBroken: true})

	res, err := d.Run(c.novel.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Broken)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, c.requested)
	b, err := os.ReadFile(res.TextPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), BrokenPlaceholder)
}

func TestRun_CoverFailureIsNotFatal(t *testing.T) {
	c := newFakeCrawler(2)
	c.coverErr = errors.New("404")
	d := newTestDownloader(t, c, Options{})

	res, err := d.Run(c.novel.URL)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(res.Dir, "cover.jpg"))
}

func TestNewDownloader_RejectsBadRange(t *testing.T) {
	_, err := NewDownloader(newFakeCrawler(1), Options{BooksDir: t.TempDir(), Range: "9-3"})
	assert.Error(t, err)
}
