package piaotian

import (
	"strings"
	"testing"

	"github.com/novelcrawl/piaotian/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNovelURL(t *testing.T) {
	tests := map[string]string{
		"https://www.piaotia.com/bookinfo/8/8866.html":     "https://www.piaotia.com/html/8/8866/",
		"https://www.piaotia.com/html/8/8866/index.html":   "https://www.piaotia.com/html/8/8866/",
		"https://www.piaotia.com/html/8/8866":              "https://www.piaotia.com/html/8/8866/",
		"https://www.piaotia.com/html/8/8866/":             "https://www.piaotia.com/html/8/8866/",
		"  https://www.ptwxz.com/bookinfo/13/13793.html  ": "https://www.ptwxz.com/html/13/13793/",
	}

	for in, want := range tests {
		got := NormalizeNovelURL(in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, got, NormalizeNovelURL(got), "normalizing twice changed %s", in)
	}
}

func TestCoverURL(t *testing.T) {
	got, err := CoverURL("https://www.piaotia.com/", "https://www.piaotia.com/bookinfo/8/8866.html")
	require.NoError(t, err)

	assert.Equal(t, "https://www.piaotia.com/files/article/image/8/8866/8866s.jpg", got)
	assert.Equal(t, 1, strings.Count(got, "/8/"))
	assert.Equal(t, 1, strings.Count(got, "/8866/"))
}

func TestCoverURL_HomeWithoutSlash(t *testing.T) {
	got, err := CoverURL("https://www.ptwxz.com", "https://www.ptwxz.com/html/1/1234/")
	require.NoError(t, err)
	assert.Equal(t, "https://www.ptwxz.com/files/article/image/1/1234/1234s.jpg", got)
}

func TestCoverURL_NoIDs(t *testing.T) {
	_, err := CoverURL("https://www.piaotia.com/", "https://www.piaotia.com/modules/article/search.php")
	assert.Error(t, err)
}

func TestAddChapter_VolumesEveryHundred(t *testing.T) {
	novel := &models.Novel{}
	for i := 0; i < 350; i++ {
		addChapter(novel, "c", "u")
	}

	for i, ch := range novel.Chapters {
		assert.Equal(t, i+1, ch.ID)
		assert.Equal(t, 1+i/100, ch.Volume)
	}
	assert.Equal(t, []models.Volume{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}, novel.Volumes)
}
