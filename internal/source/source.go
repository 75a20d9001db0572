// Package source retrieves the raw text of the palette and highlight
// documents from an http(s) URL, a file:// URL or a local path.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/telemetry"
)

const (
	DefaultPaletteURL    = "https://raw.githubusercontent.com/navarasu/onedark.nvim/master/lua/onedark/palette.lua"
	DefaultHighlightsURL = "https://raw.githubusercontent.com/navarasu/onedark.nvim/master/lua/onedark/highlights.lua"

	DefaultTimeout = 30 * time.Second

	// Source files are a few kilobytes; anything past this is not a colorscheme.
	maxBodySize = 8 << 20
)

var errNilHTTPClient = errors.New("source: nil http client")

type Document struct {
	Location   string
	Text       string
	SHA256     string
	Size       int
	StatusCode int
}

type Client struct {
	http      *http.Client
	userAgent string
	log       zerolog.Logger
	tel       telemetry.Instrumenter
	runID     string
}

type Option func(*Client)

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithTelemetry(tel telemetry.Instrumenter) Option {
	return func(c *Client) {
		if tel != nil {
			c.tel = tel
		}
	}
}

func WithRunID(id string) Option {
	return func(c *Client) { c.runID = id }
}

func NewClient(hc *http.Client, opts ...Option) (Client, error) {
	if hc == nil {
		return Client{}, errNilHTTPClient
	}
	c := Client{
		http:      hc,
		userAgent: "themesync",
		log:       zerolog.Nop(),
		tel:       telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// Fetch reads location in full. Any failure, including a non-200 response,
// is reported with errdef.CodeTransport.
func (c Client) Fetch(ctx context.Context, location string) (Document, error) {
	location = strings.TrimSpace(location)
	ctx, span := c.tel.Start(ctx, telemetry.StageStart{
		Stage:    telemetry.StageFetch,
		RunID:    c.runID,
		Location: location,
	})

	start := time.Now()
	doc, err := c.fetch(ctx, location)
	span.End(telemetry.StageResult{Err: err, StatusCode: doc.StatusCode, Bytes: doc.Size})
	if err != nil {
		c.log.Error().Err(err).Str("location", location).Msg("fetch failed")
		return Document{}, err
	}

	c.log.Debug().
		Str("location", location).
		Int("bytes", doc.Size).
		Str("sha256", doc.SHA256).
		Dur("took", time.Since(start)).
		Msg("fetched source")
	return doc, nil
}

func (c Client) fetch(ctx context.Context, location string) (Document, error) {
	if location == "" {
		return Document{}, errdef.New(errdef.CodeTransport, "empty source location")
	}

	u, err := url.Parse(location)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return c.fetchHTTP(ctx, location)
		case "file":
			return readFile(fileURLPath(u), location)
		}
	}
	return readFile(location, location)
}

func (c Client) fetchHTTP(ctx context.Context, location string) (Document, error) {
	if c.http == nil {
		return Document{}, errdef.Wrap(errdef.CodeTransport, errNilHTTPClient, "fetch %s", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Document{}, errdef.Wrap(errdef.CodeTransport, err, "build request for %s", location)
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return Document{}, errdef.Wrap(errdef.CodeTransport, err, "fetch %s", location)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		return Document{StatusCode: res.StatusCode}, errdef.New(
			errdef.CodeTransport,
			"fetch %s failed: %s",
			location,
			res.Status,
		)
	}

	data, err := readLimited(res.Body)
	if err != nil {
		return Document{StatusCode: res.StatusCode}, errdef.Wrap(errdef.CodeTransport, err, "read %s", location)
	}
	doc := newDocument(location, data)
	doc.StatusCode = res.StatusCode
	return doc, nil
}

func readFile(path, location string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, errdef.Wrap(errdef.CodeTransport, err, "open %s", location)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := readLimited(f)
	if err != nil {
		return Document{}, errdef.Wrap(errdef.CodeTransport, err, "read %s", location)
	}
	return newDocument(location, data), nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodySize {
		return nil, errors.New("source exceeds size limit")
	}
	return data, nil
}

func fileURLPath(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if u.Host != "" && u.Host != "localhost" {
		p = "//" + u.Host + p
	}
	return filepath.FromSlash(p)
}

func newDocument(location string, data []byte) Document {
	sum := sha256.Sum256(data)
	return Document{
		Location: location,
		Text:     string(data),
		SHA256:   hex.EncodeToString(sum[:]),
		Size:     len(data),
	}
}
