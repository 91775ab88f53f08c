package feed

// APIResponse represents one page of the card feed.
type APIResponse struct {
	PageInfo PageInfo  `json:"pageInfo"`
	Content  []Content `json:"content"`
}

type PageInfo struct {
	Page       int `json:"page"`
	NumPages   int `json:"numPages"`
	PageSize   int `json:"pageSize"`
	NumEntries int `json:"numEntries"`
}

type Content struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	Detail    *string `json:"detail"`
	Ticker    string  `json:"ticker"`
	Sentiment string  `json:"sentiment"`
	Category  string  `json:"category"`
	ImageURL  *string `json:"imageUrl"`
	Date      string  `json:"date"`
}
