package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

const (
	// DefaultOrigin is prefixed to relative job links.
	DefaultOrigin = "https://www.upwork.com"

	maxDescriptionRunes = 1000
	minTitleRunes       = 5
	negotiable          = "Negotiable"
)

const (
	selTile        = `article[data-test="JobTile"]`
	selTitleLink   = `a[data-test="job-tile-title-link"]`
	selTitleAlt    = `h2.job-tile-title a`
	selPosted      = `small[data-test="job-pubilshed-date"]`
	selDesc        = `[data-test="JobDescription"] p`
	selDescAlt     = `.air3-line-clamp p`
	selJobInfo     = `ul[data-test="JobInfo"]`
	selJobType     = `li[data-test="job-type-label"]`
	selFixedPrice  = `li[data-test="is-fixed-price"]`
	selExperience  = `li[data-test="experience-level"] strong`
	selDuration    = `li[data-test="duration-label"]`
	selVerified    = `li[data-test="payment-verified"]`
	selClientInfo  = `ul[data-test="JobInfoClient"]`
	selSpent       = `li[data-test="total-spent"] strong`
	selLocation    = `li[data-test="location"] span.rr-mask`
	selSkill       = `button[data-test="token"] span`
	selProposals   = `li[data-test="proposals-tier"] strong`
	attrJobID      = "data-ev-job-uid"
	prefixPosted   = "Posted"
	prefixDuration = "Est. time:"
	prefixLocation = "Location"
)

var (
	rateRe  = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?(?:\s*-\s*\$[\d,]+(?:\.\d{2})?)?`)
	priceRe = regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?`)
)

// Extractor reads job tiles from a results page.
type Extractor struct {
	origin *url.URL
	logger *zap.Logger
}

// New returns an Extractor resolving relative links against origin.
func New(origin string, logger *zap.Logger) (*Extractor, error) {
	if origin == "" {
		origin = DefaultOrigin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be absolute", origin)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{origin: u, logger: logger.Named("extract")}, nil
}

// Extract parses html and extracts every usable job tile.
func (e *Extractor) Extract(html string) (scraper.Extraction, error) {
	root, err := Parse(html)
	if err != nil {
		return scraper.Extraction{}, err
	}
	return e.ExtractFrom(root), nil
}

// ExtractFrom walks the job tiles under root in document order. A tile that
// has no usable title, or that fails while being read, is skipped.
func (e *Extractor) ExtractFrom(root Node) scraper.Extraction {
	tiles := root.All(selTile)
	out := scraper.Extraction{Records: make([]scraper.JobRecord, 0, len(tiles))}
	for i, tile := range tiles {
		rec, ok, err := e.tile(tile)
		if err != nil {
			e.logger.Debug("skipping malformed job tile", zap.Int("index", i), zap.Error(err))
		}
		if !ok {
			out.Skipped++
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

func (e *Extractor) tile(n Node) (rec scraper.JobRecord, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok, err = scraper.JobRecord{}, false, fmt.Errorf("panic reading tile: %v", r)
		}
	}()

	rec.JobID, _ = n.Attr(attrJobID)

	link, found := n.First(selTitleLink)
	if !found {
		link, found = n.First(selTitleAlt)
	}
	if found {
		rec.Title = link.Text()
		href, _ := link.Attr("href")
		rec.URL = e.absolute(href)
	}
	if utf8.RuneCountInString(rec.Title) < minTitleRunes {
		return scraper.JobRecord{}, false, nil
	}

	rec.PostedAt = posted(n)
	rec.Description = description(n)
	rec.Budget = negotiable

	if info, ok := n.First(selJobInfo); ok {
		rec.Budget = budget(info)
		rec.ExperienceLevel = textOf(info, selExperience)
		if d, ok := info.First(selDuration); ok {
			rec.Duration = stripPrefix(d.Text(), prefixDuration)
		}
	}

	_, rec.ClientPaymentVerified = n.First(selVerified)

	if client, ok := n.First(selClientInfo); ok {
		rec.ClientSpent = textOf(client, selSpent)
		if loc, ok := client.First(selLocation); ok {
			rec.ClientLocation = stripPrefix(loc.Text(), prefixLocation)
		}
	}

	rec.Skills = skills(n)
	rec.Proposals = textOf(n, selProposals)
	return rec, true, nil
}

// absolute resolves href against the origin. Empty stays empty.
func (e *Extractor) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		if strings.HasPrefix(href, "http") {
			return href
		}
		return strings.TrimSuffix(e.origin.String(), "/") + href
	}
	return e.origin.ResolveReference(ref).String()
}

func posted(n Node) string {
	el, ok := n.First(selPosted)
	if !ok {
		return ""
	}
	if spans := el.All("span"); len(spans) >= 2 {
		return spans[1].Text()
	}
	return stripPrefix(el.Text(), prefixPosted)
}

func description(n Node) string {
	el, ok := n.First(selDesc)
	if !ok {
		el, ok = n.First(selDescAlt)
	}
	if !ok {
		return ""
	}
	return truncateRunes(el.InnerText(), maxDescriptionRunes)
}

// budget applies the engagement heuristics in order: rate in the job-type
// label, then the fixed-price item, then the first dollar amount in any item
// while nothing with a dollar sign has been found.
func budget(info Node) string {
	out := negotiable

	if jt, ok := info.First(selJobType); ok {
		label := jt.Text()
		if m := rateRe.FindString(label); m != "" {
			out = "Hourly: " + m + "/hr"
		} else if strings.Contains(strings.ToLower(label), "hourly") {
			out = "Hourly"
		}
	}

	if fp, ok := info.First(selFixedPrice); ok {
		if m := priceRe.FindString(fp.Text()); m != "" {
			out = "Fixed: " + m
		} else {
			out = "Fixed Price"
		}
	}

	for _, li := range info.All("li") {
		text := li.Text()
		if !strings.Contains(text, "$") || strings.Contains(out, "$") {
			continue
		}
		if m := rateRe.FindString(text); m != "" {
			out = m
		}
	}
	return out
}

func skills(n Node) []string {
	tokens := n.All(selSkill)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		s := tok.Text()
		if s == "" || strings.HasPrefix(s, "+") {
			continue
		}
		out = append(out, s)
	}
	return out
}

func textOf(n Node, selector string) string {
	if el, ok := n.First(selector); ok {
		return el.Text()
	}
	return ""
}

func stripPrefix(s, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, prefix))
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
