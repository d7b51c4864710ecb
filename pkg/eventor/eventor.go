// Package eventor scrapes the document links (invitation, PM, start lists,
// results...) from a competition's event page.
package eventor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/util"
)

var log = logger.Named("eventor")

type rule struct {
	kind     models.ResourceType
	keywords []string
}

// Checked in order; the first rule with a keyword in the link text (or, failing
// that, the URL) decides the type.
var rules = []rule{
	{models.ResourceSplits, []string{"sträcktider", "splits", "splittimes"}},
	{models.ResourceStartList, []string{"startlista", "startlist", "start list"}},
	{models.ResourceResults, []string{"resultat", "results", "resultlist"}},
	{models.ResourceInvitation, []string{"inbjudan", "invitation"}},
	{models.ResourcePM, []string{"promemoria", "pm"}},
	{models.ResourceMap, []string{"karta", "kartprov", "map"}},
	{models.ResourceRegistration, []string{"anmälan", "anmäl", "entry", "registration"}},
}

var fileTypes = map[string]bool{
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "txt": true,
	"zip": true, "jpg": true, "jpeg": true, "png": true, "gif": true,
	"ocd": true, "kmz": true, "gpx": true, "xml": true,
}

// Classify returns the resource type for a link. Short keywords such as "pm" and
// "map" must stand as whole words.
func Classify(text, href string) (models.ResourceType, bool) {
	for _, source := range []string{strings.ToLower(text), strings.ToLower(href)} {
		words := strings.FieldsFunc(source, func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == 'å' || r == 'ä' || r == 'ö')
		})
		for _, r := range rules {
			for _, kw := range r.keywords {
				if len(kw) <= 3 {
					if containsWord(words, kw) {
						return r.kind, true
					}
				} else if strings.Contains(source, kw) {
					return r.kind, true
				}
			}
		}
	}
	return models.ResourceOther, false
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// FileType returns the lower-case file extension of a link if it points to a
// downloadable document.
func FileType(u *url.URL) (string, bool) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	return ext, fileTypes[ext]
}

// Parse extracts resources from an event page. Relative links resolve against base.
// Links that are neither recognized documents nor files are skipped, as are
// duplicates and non-http links.
func Parse(r io.Reader, base *url.URL, now time.Time) ([]models.CompetitionResource, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event page: %w", err)
	}

	var resources []models.CompetitionResource
	seen := make(map[string]bool)
	added := models.DateOf(now)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link, err := base.Parse(strings.TrimSpace(href))
		if err != nil || (link.Scheme != "http" && link.Scheme != "https") {
			return
		}
		link.Fragment, link.RawFragment = "", ""
		abs := link.String()
		if seen[abs] {
			return
		}

		text := util.RemoveFormatFromString(a.Text())
		if text == "" {
			text = util.RemoveFormatFromString(a.AttrOr("title", ""))
		}
		kind, known := Classify(text, link.Path)
		ext, isFile := FileType(link)
		if !known && !isFile {
			return
		}
		seen[abs] = true

		res := models.CompetitionResource{
			Type:      kind,
			Title:     util.FirstNonEmpty(text, path.Base(link.Path)),
			URL:       abs,
			IsFile:    isFile,
			AddedDate: added,
		}
		if isFile {
			res.FileType = ext
		}
		resources = append(resources, res)
	})
	return resources, nil
}

// Fetcher downloads event pages and parses their resources.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	Now       func() time.Time
}

func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Now:       time.Now,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]models.CompetitionResource, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid event page url %q: %w", pageURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	log.Debug("Fetching event page %s", pageURL)
	res, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, res.StatusCode)
	}
	return Parse(res.Body, base, f.Now())
}
