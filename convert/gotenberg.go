package convert

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dcaraxes/gotenberg-go-client/v8"
)

// GotenbergPath is the LibreOffice conversion route of a Gotenberg server.
const GotenbergPath = "/forms/libreoffice/convert"

// maxResponse caps the PDF read back from the server.
const maxResponse = 200 << 20

// Gotenberg converts through a Gotenberg HTTP service.
type Gotenberg struct {
	// URL is the server base, e.g. http://gotenberg:3000.
	URL    string
	Client *http.Client
}

func (g Gotenberg) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	if g.URL == "" {
		return nil, fmt.Errorf("%w: gotenberg url not configured", ErrConversion)
	}
	httpClient := g.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := &gotenberg.Client{Hostname: strings.TrimRight(g.URL, "/"), HTTPClient: httpClient}
	doc, err := gotenberg.NewDocumentFromBytes("document.docx", docx)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrConversion, err)
	}

	resp, err := client.PostContext(ctx, gotenberg.NewOfficeRequest(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrConversion, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(out))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("%w: gotenberg status %d: %s", ErrConversion, resp.StatusCode, msg)
	}
	if err := checkPDF(out); err != nil {
		return nil, err
	}
	return out, nil
}
