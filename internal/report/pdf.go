// Package report renders summary data as PDF documents.
//
// The renderer only lays out what it is given: hours and earnings arrive
// already rounded and dates arrive already formatted.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"

	"timetrack/internal/core"
)

// Kind names a report and prefixes its download filename.
type Kind string

const (
	KindProjects Kind = "projects"
	KindOverview Kind = "overview"
)

const (
	margin      = 50.0
	contentW    = 495.0
	tableW      = 470.0
	rowH        = 25.0
	pageBreakY  = 700.0
	nameMaxRune = 20
)

type rgb struct{ r, g, b int }

var (
	headerBg   = rgb{0xf8, 0xf9, 0xfa}
	titleColor = rgb{0x2c, 0x3e, 0x50}
	ruleColor  = rgb{0x34, 0x98, 0xdb}
	tableHead  = rgb{0xf0, 0xf0, 0xf0}
	zebra      = rgb{0xfa, 0xfa, 0xfa}
	gray       = rgb{0x80, 0x80, 0x80}
	black      = rgb{0, 0, 0}
	white      = rgb{0xff, 0xff, 0xff}
	billableC  = rgb{0x4c, 0xaf, 0x50}
	nonBillC   = rgb{0x9e, 0x9e, 0x9e}
)

// Column offsets of the projects table.
var columns = []struct {
	title string
	x     float64
}{
	{"Project", 55},
	{"Hours", 205},
	{"Rate", 275},
	{"Earnings", 335},
	{"Work Period", 405},
}

// Filename returns "{kind}-summary-{from|all}-{to|all}.pdf".
func Filename(kind Kind, f core.RangeFilter) string {
	from, to := f.FromText, f.ToText
	if from == "" {
		from = "all"
	}
	if to == "" {
		to = "all"
	}
	return fmt.Sprintf("%s-summary-%s-%s.pdf", kind, from, to)
}

// Renderer writes A4 reports.
type Renderer struct {
	clock    core.Clock
	compress bool
}

func NewRenderer(clock core.Clock) *Renderer {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Renderer{clock: clock, compress: true}
}

type page struct {
	*fpdf.Fpdf
	tr func(string) string
}

func (r *Renderer) newPage(title string) *page {
	now := r.clock.Now()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(r.compress)
	doc.SetCreationDate(now)
	doc.SetModificationDate(now)
	doc.SetTitle(title, true)
	doc.SetCreator("timetrack", true)

	p := &page{Fpdf: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	p.AddPage()
	p.header(title)
	return p
}

func (p *page) fill(c rgb)      { p.SetFillColor(c.r, c.g, c.b) }
func (p *page) textColor(c rgb) { p.SetTextColor(c.r, c.g, c.b) }

func (p *page) box(x, y, w, h float64, c rgb) {
	p.fill(c)
	p.Rect(x, y, w, h, "F")
}

// write places s with its top-left corner at (x, y).
func (p *page) write(x, y, w float64, s string) {
	p.SetXY(x, y)
	p.CellFormat(w, 12, p.tr(s), "", 0, "L", false, 0, "")
}

func (p *page) header(title string) {
	pw, _ := p.GetPageSize()
	p.box(0, 0, pw, 80, headerBg)
	p.SetFont("Helvetica", "B", 24)
	p.textColor(titleColor)
	p.write(margin, 25, contentW, title)
	p.SetDrawColor(ruleColor.r, ruleColor.g, ruleColor.b)
	p.SetLineWidth(2)
	p.Line(margin, 65, margin+contentW, 65)
}

// period prints the filter line and returns the y below it, or y unchanged
// when the filter is empty.
func (p *page) period(f core.RangeFilter, y float64) (float64, bool) {
	text := periodText(f)
	if text == "" {
		return y, false
	}
	p.SetFont("Helvetica", "", 10)
	p.textColor(gray)
	p.write(margin, y, 90, "Report Period:")
	p.textColor(black)
	p.write(140, y, 400, text)
	return y + 25, true
}

func (p *page) footer(at time.Time) {
	_, ph := p.GetPageSize()
	local := at.In(core.LocalZone)
	p.SetFont("Helvetica", "", 9)
	p.textColor(gray)
	p.SetXY(margin, ph-50)
	p.CellFormat(contentW, 12, p.tr(fmt.Sprintf("Generated on %s at %s",
		local.Format(core.DateLayout), local.Format("3:04:05 PM"))), "", 0, "C", false, 0, "")
}

func (p *page) flush(w io.Writer) error {
	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func periodText(f core.RangeFilter) string {
	switch {
	case f.FromText != "" && f.ToText != "":
		return f.FromText + " to " + f.ToText
	case f.FromText != "":
		return "From " + f.FromText
	case f.ToText != "":
		return "Until " + f.ToText
	}
	return ""
}

// RenderProjects writes the per-project table followed by totals.
func (r *Renderer) RenderProjects(w io.Writer, projects []core.ProjectSummary, f core.RangeFilter) error {
	p := r.newPage("Projects Summary Report")

	y, filtered := p.period(f, 100)
	if !filtered {
		y = 105
	}

	if len(projects) == 0 {
		p.SetFont("Helvetica", "", 12)
		p.textColor(gray)
		p.write(margin, y, contentW, "No projects with activity in the selected date range.")
		p.footer(r.clock.Now())
		return p.flush(w)
	}

	p.box(margin, y, tableW, rowH, tableHead)
	p.SetFont("Helvetica", "B", 9)
	p.textColor(black)
	for _, c := range columns {
		p.write(c.x, y+7, 70, c.title)
	}
	y += rowH

	p.SetFont("Helvetica", "", 8)
	var totalHours, totalEarnings float64
	billable := 0
	for i, ps := range projects {
		if i%2 == 0 {
			p.box(margin, y, tableW, rowH, zebra)
		}
		p.textColor(black)
		cells := projectRow(ps)
		for j, c := range columns {
			width := 70.0
			if j == len(columns)-1 {
				width = 115
			}
			p.write(c.x, y+7, width, cells[j])
		}

		totalHours += ps.Hours
		totalEarnings += ps.Earnings
		if ps.IsBillable {
			billable++
		}

		y += rowH
		if y > pageBreakY {
			p.AddPage()
			y = margin
		}
	}

	y += 20
	if y > 650 {
		p.AddPage()
		y = margin
	}
	p.SetFont("Helvetica", "B", 11)
	p.write(margin, y, contentW, "Summary Totals")
	y += 20
	p.SetFont("Helvetica", "", 10)
	p.write(margin, y, 150, "Total Projects: "+strconv.Itoa(len(projects)))
	p.write(200, y, 170, "Billable Projects: "+strconv.Itoa(billable))
	p.write(370, y, 175, "Non-Billable Projects: "+strconv.Itoa(len(projects)-billable))
	y += 15
	p.write(margin, y, 150, "Total Hours: "+fixed2(totalHours))
	p.write(200, y, 170, "Total Earnings: "+fixed2(totalEarnings))

	p.footer(r.clock.Now())
	return p.flush(w)
}

func projectRow(ps core.ProjectSummary) [5]string {
	rate, earnings := "N/A", "-"
	if ps.IsBillable && ps.HourlyRate != nil {
		rate = strconv.FormatFloat(*ps.HourlyRate, 'f', -1, 64) + "/hr"
	}
	if ps.IsBillable {
		earnings = fixed2(ps.Earnings)
	}
	return [5]string{
		truncate(ps.Name, nameMaxRune),
		fixed2(ps.Hours),
		rate,
		earnings,
		activityDay(ps.FirstActivity) + " - " + activityDay(ps.LastActivity),
	}
}

type metric struct {
	label string
	value string
	color rgb
}

// RenderOverview writes the seven overview figures and a billable split bar.
func (r *Renderer) RenderOverview(w io.Writer, o core.Overview, f core.RangeFilter) error {
	p := r.newPage("Overview Summary Report")
	y, _ := p.period(f, 100)

	metrics := []metric{
		{"Total Projects", strconv.Itoa(o.TotalProjects), rgb{0x4c, 0xaf, 0x50}},
		{"Total Working Hours", fixed2(o.TotalHours) + " hrs", rgb{0x21, 0x96, 0xf3}},
		{"Billable Projects", strconv.Itoa(o.BillableProjects), rgb{0xff, 0x98, 0x00}},
		{"Billable Hours", fixed2(o.BillableHours) + " hrs", rgb{0x9c, 0x27, 0xb0}},
		{"Total Earnings", fixed2(o.BillableEarnings), rgb{0xf4, 0x43, 0x36}},
		{"Non-Billable Projects", strconv.Itoa(o.NonBillableProjects), rgb{0x00, 0x96, 0x88}},
		{"Non-Billable Hours", fixed2(o.NonBillableHours) + " hrs", rgb{0x67, 0x3a, 0xb7}},
	}

	const boxW, boxH, gap = 240.0, 60.0, 20.0
	x := margin
	for _, m := range metrics {
		p.box(x, y, boxW, boxH, m.color)
		p.textColor(white)
		p.SetFont("Helvetica", "B", 20)
		p.write(x+10, y+12, boxW-20, m.value)
		p.SetFont("Helvetica", "", 10)
		p.write(x+10, y+40, boxW-20, m.label)
		if x == margin {
			x += boxW + gap
		} else {
			x = margin
			y += boxH + gap
		}
	}

	y += boxH + 40
	if y > 600 {
		p.AddPage()
		y = margin
	}

	p.SetFont("Helvetica", "B", 14)
	p.textColor(black)
	p.write(margin, y, contentW, "Billable vs Non-Billable Hours")
	y += 30

	const chartW, chartH = 500.0, 30.0
	billW, nonW := splitBar(o.BillableHours, o.NonBillableHours, chartW)
	if billW > 0 {
		p.box(margin, y, billW, chartH, billableC)
	}
	if nonW > 0 {
		p.box(margin+billW, y, nonW, chartH, nonBillC)
	}

	y += chartH + 10
	p.SetFont("Helvetica", "", 10)
	p.box(margin, y, 15, 15, billableC)
	p.textColor(black)
	p.write(70, y+2, 120, "Billable: "+fixed2(o.BillableHours)+" hrs")
	p.box(200, y, 15, 15, nonBillC)
	p.write(220, y+2, 200, "Non-Billable: "+fixed2(o.NonBillableHours)+" hrs")

	p.footer(r.clock.Now())
	return p.flush(w)
}

// splitBar divides width between the two hour totals. With no hours at all
// the whole bar is drawn as non-billable.
func splitBar(billable, nonBillable, width float64) (float64, float64) {
	total := billable + nonBillable
	if total <= 0 {
		return 0, width
	}
	return billable / total * width, nonBillable / total * width
}

func fixed2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// activityDay keeps the date part of a formatted instant.
func activityDay(s string) string {
	if s == core.NoWorkRecorded {
		return "N/A"
	}
	day, _, _ := strings.Cut(s, " ")
	return day
}
