package models

// SearchResult represents a single hit returned by a source search
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Info  string `json:"info"`
}

// Novel represents the metadata and table of contents of a book
type Novel struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	CoverURL string    `json:"cover_url"`
	Volumes  []Volume  `json:"volumes"`
	Chapters []Chapter `json:"chapters"`
}

// Volume groups consecutive chapters for display
type Volume struct {
	ID int `json:"id"`
}

// Chapter represents a single chapter entry from the table of contents
type Chapter struct {
	ID     int    `json:"id"`
	Volume int    `json:"volume"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// ChaptersOf returns the chapters belonging to a volume, in order
func (n *Novel) ChaptersOf(volumeID int) []Chapter {
	var out []Chapter
	for _, ch := range n.Chapters {
		if ch.Volume == volumeID {
			out = append(out, ch)
		}
	}
	return out
}
