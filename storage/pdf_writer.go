package storage

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/utils"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Collection KPIs {{.AsOf}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 11px; color: #222; margin: 24px; }
h1 { font-size: 18px; margin-bottom: 2px; }
h2 { font-size: 14px; margin-top: 22px; border-bottom: 1px solid #999; }
table { border-collapse: collapse; width: 100%; margin-top: 6px; }
th { background: #305496; color: #fff; text-align: left; padding: 4px 6px; }
td { border-bottom: 1px solid #ddd; padding: 3px 6px; }
.muted { color: #777; }
.bad { color: #b00020; font-weight: bold; }
</style>
</head>
<body>
<h1>Collection KPIs</h1>
<div class="muted">{{.Source}} &middot; as of {{.AsOf}} &middot; overdue threshold {{.Threshold}}</div>
{{range .Tables}}
<h2>{{.Name}}</h2>
<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}
{{with .Checks}}
<h2>Data Checks</h2>
<table>
<tr><th>Check</th><th>Result</th></tr>
{{range .}}<tr><td>{{.Title}}</td><td{{if .Flagged}} class="bad"{{end}}>{{.Status}}</td></tr>
{{end}}</table>
{{end}}
{{range .Notes}}<p class="muted">{{.}}</p>{{end}}
</body>
</html>
`))

type pdfCheckLine struct {
	Title   string
	Status  string
	Flagged bool
}

type pdfView struct {
	Source    string
	AsOf      string
	Threshold string
	Tables    []models.Table
	Checks    []pdfCheckLine
	Notes     []string
}

// RenderHTML renders the printable report page.
func RenderHTML(r *models.Report, checks *models.CheckReport) ([]byte, error) {
	view := pdfView{
		Source:    r.Source,
		AsOf:      r.AsOf.Format("02 Jan 2006"),
		Threshold: services.FormatINR(r.OverdueThreshold),
		Notes:     r.Notes,
	}
	for _, t := range services.ReportTables(r) {
		// per-booking rows belong in the spreadsheet exports
		if t.Name == "bookings" {
			continue
		}
		view.Tables = append(view.Tables, t)
	}
	if checks != nil {
		for _, res := range checks.Results {
			line := pdfCheckLine{Title: res.Title, Status: "ok"}
			switch {
			case res.Err != nil:
				line.Status = "skipped: " + res.Err.Error()
			case res.Count > 0:
				line.Status = res.Message
				line.Flagged = true
			}
			view.Checks = append(view.Checks, line)
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("pdf: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// PDFWriter prints the report page to PDF with headless Chrome.
type PDFWriter struct {
	path      string
	chromeBin string
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

func NewPDFWriter(path, chromeBin string, maxRetries int, logger *utils.Logger) (*PDFWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("pdf: create output dir: %w", err)
	}
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &PDFWriter{
		path:      path,
		chromeBin: chromeBin,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}, nil
}

// Export renders the report and writes the PDF to the writer's path.
func (p *PDFWriter) Export(r *models.Report, checks *models.CheckReport) (string, error) {
	html, err := RenderHTML(r, checks)
	if err != nil {
		return "", err
	}

	var pdf []byte
	err = p.retry.Do("print-pdf", func() error {
		var printErr error
		pdf, printErr = p.print(html)
		return printErr
	})
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}

	if err := os.WriteFile(p.path, pdf, 0644); err != nil {
		return "", fmt.Errorf("pdf: write %q: %w", p.path, err)
	}
	p.logger.Info("[pdf] Wrote %s (%d bytes)", p.path, len(pdf))
	return p.path, nil
}

func (p *PDFWriter) print(html []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(p.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
	defer cancelTimeout()

	var out []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(true).
				Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
