package web

import "html/template"

// ViewData feeds the page templates.
type ViewData struct {
	Title           string
	ContentTemplate string
	ContentHTML     template.HTML
	Theme           string
}

type shardPayload struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type shardSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	UpdatedAt string   `json:"updated_at"`
}

type searchHit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type assetPayload struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	URI          string `json:"uri"`
}

type saveRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type insertRequest struct {
	Text string `json:"text"`
}

type wrapRequest struct {
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	DefaultText string `json:"defaultText"`
}
