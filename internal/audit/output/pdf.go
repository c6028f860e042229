package output

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/julianshen/pqcaudit/internal/audit"
)

// pdfTimeout bounds a single headless Chrome render.
const pdfTimeout = 60 * time.Second

// PDFFormatter prints the HTML report to PDF with headless Chrome.
type PDFFormatter struct {
	html       *HTMLFormatter
	chromePath string
	timeout    time.Duration
}

// NewPDFFormatter creates a PDFFormatter. An empty chromePath lets chromedp
// locate Chrome itself.
func NewPDFFormatter(chromePath string) *PDFFormatter {
	return &PDFFormatter{html: NewHTMLFormatter(), chromePath: chromePath, timeout: pdfTimeout}
}

// Name returns the formatter name.
func (f *PDFFormatter) Name() string {
	return "pdf"
}

// Format renders the report to HTML and prints it. A missing or failing
// Chrome is returned as an error wrapping audit.ErrToolUnavailable.
func (f *PDFFormatter) Format(ctx context.Context, report *audit.Report) ([]byte, error) {
	doc, err := f.html.Format(ctx, report)
	if err != nil {
		return nil, err
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if f.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(f.chromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(doc)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: printing pdf with chrome: %v", audit.ErrToolUnavailable, err)
	}
	return pdf, nil
}
