package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"streamlance.app/internal/model"
)

const (
	excerptLength = 200
	publishedTime = "2006-01-02 15:04 UTC"
)

//go:embed templates/*.html
var templateFiles embed.FS

var digestTemplate = template.Must(
	template.ParseFS(templateFiles, "templates/digest.html"))

// Digest is a rendered notification email.
type Digest struct {
	Subject string
	Body    string
}

type digestData struct {
	Subject string
	Count   int
	Cards   []card
}

type card struct {
	Title     string
	Link      string
	Category  string
	Published string
	Budget    string
	Excerpt   string
}

// Subject returns the subject of a digest with n postings.
func Subject(n int) string {
	return "New Gig Alerts from StreamLance (" + strconv.Itoa(n) +
		" new matches!)"
}

// RenderDigest renders postings as a HTML email, one card per posting.
func RenderDigest(postings model.Postings) (*Digest, error) {
	data := digestData{
		Subject: Subject(len(postings)),
		Count:   len(postings),
		Cards:   make([]card, len(postings)),
	}
	for i, p := range postings {
		data.Cards[i] = newCard(p)
	}

	var b bytes.Buffer
	if err := digestTemplate.Execute(&b, &data); err != nil {
		return nil, fmt.Errorf("notify: render digest: %w", err)
	}
	return &Digest{Subject: data.Subject, Body: b.String()}, nil
}

func newCard(p *model.Posting) card {
	c := card{
		Title:     p.Title,
		Link:      p.Link,
		Category:  p.Category,
		Published: "N/A",
		Budget:    p.Budget(),
		Excerpt:   excerpt(p.Description, excerptLength),
	}

	if c.Title == "" {
		c.Title = "N/A"
	}
	if c.Link == "" {
		c.Link = "#"
	}
	if p.PublishedAt != nil {
		c.Published = p.PublishedAt.UTC().Format(publishedTime)
	}
	return c
}

// excerpt returns the first n characters of text content of s, followed by
// "..." if something was cut.
func excerpt(s string, n int) string {
	text := s
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}
