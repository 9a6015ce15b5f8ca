// Package appinstaller resolves .appinstaller indirection files to the real
// installer URL they point at. This is the only network-bound step around
// the analysis core.
package appinstaller

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Extension is the indirection file extension, without the dot
const Extension = "appinstaller"

// maxDocumentSize bounds the downloaded XML; real files are a few KB
const maxDocumentSize = 1 << 20

// appInstaller mirrors the appinstaller schema
// https://learn.microsoft.com/en-us/uwp/schemas/appinstallerschema/element-appinstaller
type appInstaller struct {
	MainBundle  *mainReference `xml:"MainBundle"`
	MainPackage *mainReference `xml:"MainPackage"`
}

type mainReference struct {
	URI string `xml:"Uri,attr"`
}

func (a *appInstaller) installerURL() string {
	if a.MainBundle != nil && a.MainBundle.URI != "" {
		return a.MainBundle.URI
	}
	if a.MainPackage != nil {
		return a.MainPackage.URI
	}
	return ""
}

// Resolve downloads and parses an .appinstaller URL, returning the URL of
// the MainBundle or MainPackage it references. Non-appinstaller URLs and
// documents without a reference resolve to nil without error.
func Resolve(ctx context.Context, client *http.Client, rawURL string, log zerolog.Logger) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(parsed.Path), "."+Extension) {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch appinstaller: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, err
	}

	var doc appInstaller
	if err := xml.Unmarshal(body, &doc); err != nil {
		log.Warn().Err(err).Msg("unparseable appinstaller document")
		return nil, nil
	}
	target := doc.installerURL()
	if target == "" {
		log.Warn().Msg("appinstaller document without MainBundle or MainPackage uri")
		return nil, nil
	}
	resolved, err := url.Parse(target)
	if err != nil {
		log.Warn().Err(err).Str("uri", target).Msg("invalid installer uri in appinstaller")
		return nil, nil
	}
	return resolved, nil
}
