package extract

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New("", zap.NewNop())
	require.NoError(t, err)
	return e
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/search_results.html")
	require.NoError(t, err)
	return string(data)
}

func TestExtractFixturePage(t *testing.T) {
	t.Parallel()

	out, err := newTestExtractor(t).Extract(loadFixture(t))
	require.NoError(t, err)
	require.Len(t, out.Records, 4)
	assert.Equal(t, 1, out.Skipped)

	first := out.Records[0]
	assert.Equal(t, "1790000000000000001", first.JobID)
	assert.Equal(t, "Build n8n workflow for CRM sync", first.Title)
	assert.Equal(t, "https://www.upwork.com/jobs/Build-n8n-workflow-for-CRM-sync_~01abc/?referrer_url_path=%2Fnx%2Fsearch%2Fjobs", first.URL)
	assert.Equal(t, "2 hours ago", first.PostedAt)
	assert.Equal(t, "We need an n8n expert to connect HubSpot with our billing system.", first.Description)
	assert.Equal(t, "Hourly: $25.00 - $45.00/hr", first.Budget)
	assert.Equal(t, "Intermediate", first.ExperienceLevel)
	assert.Equal(t, "1 to 3 months, Less than 30 hrs/week", first.Duration)
	assert.True(t, first.ClientPaymentVerified)
	assert.Equal(t, "$10K+", first.ClientSpent)
	assert.Equal(t, "Germany", first.ClientLocation)
	assert.Equal(t, []string{"n8n", "HubSpot"}, first.Skills)
	assert.Equal(t, "10 to 15", first.Proposals)
	assert.Empty(t, first.Keyword)
	assert.True(t, first.ScrapedAt.IsZero())

	second := out.Records[1]
	assert.Equal(t, "Zapier to n8n migration", second.Title)
	assert.Equal(t, "https://www.upwork.com/jobs/Zapier-migration_~01def/", second.URL)
	assert.Equal(t, "yesterday", second.PostedAt)
	assert.Equal(t, "Move twenty Zaps to self-hosted n8n.", second.Description)
	assert.Equal(t, "Fixed: $500.00", second.Budget)
	assert.Equal(t, "Expert", second.ExperienceLevel)
	assert.False(t, second.ClientPaymentVerified)
	assert.Empty(t, second.Skills)

	assert.Equal(t, "Hourly", out.Records[2].Budget)
	assert.Equal(t, "Negotiable", out.Records[3].Budget)
	assert.Equal(t, "1790000000000000005", out.Records[3].JobID)
}

func TestExtractRecordInvariants(t *testing.T) {
	t.Parallel()

	out, err := newTestExtractor(t).Extract(loadFixture(t))
	require.NoError(t, err)
	for _, rec := range out.Records {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(rec.Title), 5)
		assert.True(t, strings.HasPrefix(rec.URL, "https://"), rec.URL)
		assert.NotEmpty(t, rec.Budget)
		assert.LessOrEqual(t, utf8.RuneCountInString(rec.Description), 1000)
		for _, s := range rec.Skills {
			assert.NotEmpty(t, s)
			assert.False(t, strings.HasPrefix(s, "+"))
		}
	}
}

func tile(inner string) string {
	return `<article data-test="JobTile" data-ev-job-uid="42">` +
		`<a data-test="job-tile-title-link" href="/jobs/x_~01/">Automation specialist</a>` +
		inner + `</article>`
}

func TestBudgetPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		info string
		want string
	}{
		{
			name: "no engagement list",
			info: ``,
			want: "Negotiable",
		},
		{
			name: "empty engagement list",
			info: `<ul data-test="JobInfo"></ul>`,
			want: "Negotiable",
		},
		{
			name: "hourly single rate",
			info: `<ul data-test="JobInfo"><li data-test="job-type-label">Hourly: $30</li></ul>`,
			want: "Hourly: $30/hr",
		},
		{
			name: "fixed price overrides hourly label",
			info: `<ul data-test="JobInfo"><li data-test="job-type-label">Hourly: $30</li><li data-test="is-fixed-price">$1,200</li></ul>`,
			want: "Fixed: $1,200",
		},
		{
			name: "fixed price without amount then generic scan",
			info: `<ul data-test="JobInfo"><li data-test="is-fixed-price">Fixed-price</li><li>Budget $75.50 - $90</li></ul>`,
			want: "$75.50 - $90",
		},
		{
			name: "generic scan keeps first dollar amount",
			info: `<ul data-test="JobInfo"><li>Entry level</li><li>$200</li><li>$900</li></ul>`,
			want: "$200",
		},
		{
			name: "generic scan does not override hourly rate",
			info: `<ul data-test="JobInfo"><li data-test="job-type-label">Hourly: $15 - $20</li><li>$5,000 spent</li></ul>`,
			want: "Hourly: $15 - $20/hr",
		},
	}
	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := e.Extract(tile(tt.info))
			require.NoError(t, err)
			require.Len(t, out.Records, 1)
			assert.Equal(t, tt.want, out.Records[0].Budget)
		})
	}
}

func TestDescriptionTruncated(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 1500)
	out, err := newTestExtractor(t).Extract(tile(`<div data-test="JobDescription"><p>` + long + `</p></div>`))
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, 1000, utf8.RuneCountInString(out.Records[0].Description))
}

func TestDescriptionKeepsLineBreaks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		desc string
		want string
	}{
		{"br separated", `<p>Need help.<br>Must know Go.<br/>Start now</p>`, "Need help.\nMust know Go.\nStart now"},
		{"nested inline", `<p><strong>Scope:</strong><span><br></span>  Build   flows <br><br>Thanks</p>`, "Scope:\nBuild flows\nThanks"},
		{"wrapped source text", "<p>One sentence\n   wrapped in source.</p>", "One sentence wrapped in source."},
		{"scripts dropped", `<p>Visible<script>var x = 1;</script> text</p>`, "Visible text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := newTestExtractor(t).Extract(tile(`<div data-test="JobDescription">` + tt.desc + `</div>`))
			require.NoError(t, err)
			require.Len(t, out.Records, 1)
			assert.Equal(t, tt.want, out.Records[0].Description)
		})
	}
}

func TestTitleFallbackAndRejection(t *testing.T) {
	t.Parallel()

	html := `<article data-test="JobTile"><h2 class="job-tile-title"><a href="jobs/rel_~02/">Fallback title</a></h2></article>` +
		`<article data-test="JobTile"><a data-test="job-tile-title-link" href="/jobs/a/">    </a></article>` +
		`<article data-test="JobTile"><p>no link at all</p></article>`
	out, err := newTestExtractor(t).Extract(html)
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "Fallback title", out.Records[0].Title)
	assert.Equal(t, "https://www.upwork.com/jobs/rel_~02/", out.Records[0].URL)
	assert.Equal(t, 2, out.Skipped)
}

func TestCustomOrigin(t *testing.T) {
	t.Parallel()

	e, err := New("http://localhost:8080", nil)
	require.NoError(t, err)
	out, err := e.Extract(tile(""))
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "http://localhost:8080/jobs/x_~01/", out.Records[0].URL)

	_, err = New("not-a-url", nil)
	require.Error(t, err)
}

func TestEmptyPage(t *testing.T) {
	t.Parallel()

	out, err := newTestExtractor(t).Extract("<html><body><p>No jobs found</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.NotNil(t, out.Records)
	assert.Zero(t, out.Skipped)
}

// explodingNode panics on every read.
type explodingNode struct{}

func (explodingNode) First(string) (Node, bool)  { panic("detached node") }
func (explodingNode) All(string) []Node          { panic("detached node") }
func (explodingNode) Attr(string) (string, bool) { panic("detached node") }
func (explodingNode) Text() string               { panic("detached node") }
func (explodingNode) InnerText() string          { panic("detached node") }

// listNode is a root whose tiles are fixed.
type listNode struct {
	tiles []Node
}

func (l listNode) First(string) (Node, bool)  { return nil, false }
func (l listNode) All(string) []Node          { return l.tiles }
func (l listNode) Attr(string) (string, bool) { return "", false }
func (l listNode) Text() string               { return "" }
func (l listNode) InnerText() string          { return "" }

func TestMalformedTileIsIsolated(t *testing.T) {
	t.Parallel()

	good, err := Parse(tile(""))
	require.NoError(t, err)
	goodTile, ok := good.First(selTile)
	require.True(t, ok)

	root := listNode{tiles: []Node{goodTile, explodingNode{}, goodTile}}
	out := newTestExtractor(t).ExtractFrom(root)
	assert.Len(t, out.Records, 2)
	assert.Equal(t, 1, out.Skipped)
}
