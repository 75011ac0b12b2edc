// Package portal logs into the lab web portal and scrapes the session codes
// from the project page.
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/codes"
)

const (
	DefaultLoginURL = "http://ithaki.eng.auth.gr/netlab/vlabStart.php"
	DefaultCodesURL = "http://ithaki.eng.auth.gr/netlab/vlabProject.php"
)

var (
	ErrNoSession = errors.New("no session id in login response")
	ErrShortPage = errors.New("codes page has fewer fields than expected")
)

// The portal speaks Greek ISO-8859-7 both ways.
var pageCharset = charmap.ISO8859_7

var sessionPattern = regexp.MustCompile(`session=(\d+)`)

type Credentials struct {
	FirstName string
	LastName  string
	ID        string
}

type encodedCredentials struct {
	first, last string
}

func (c Credentials) encode() (encodedCredentials, error) {
	enc := pageCharset.NewEncoder()
	first, err := enc.String(c.FirstName)
	if err != nil {
		return encodedCredentials{}, fmt.Errorf("encoding first name: %w", err)
	}
	last, err := enc.String(c.LastName)
	if err != nil {
		return encodedCredentials{}, fmt.Errorf("encoding last name: %w", err)
	}
	return encodedCredentials{first: first, last: last}, nil
}

// Extractor performs the two-step login/scrape against the portal.
type Extractor struct {
	Client      *http.Client
	LoginURL    string
	CodesURL    string
	Credentials Credentials
}

// New returns an Extractor for the default portal URLs. A zero timeout keeps
// requests unbounded.
func New(creds Credentials) *Extractor {
	jar, _ := cookiejar.New(nil)
	return &Extractor{
		Client:      &http.Client{Jar: jar},
		LoginURL:    DefaultLoginURL,
		CodesURL:    DefaultCodesURL,
		Credentials: creds,
	}
}

// Extract logs in, follows the session to the project page and returns the
// six codes found there.
func (e *Extractor) Extract(ctx context.Context) (codes.Codes, error) {
	enc, err := e.Credentials.encode()
	if err != nil {
		return codes.Codes{}, err
	}

	form := url.Values{}
	form.Set("fi", enc.first)
	form.Set("fa", enc.last)
	form.Set("am", e.Credentials.ID)
	form.Set("x", "1")
	klog.Infof("Logging into %s", e.LoginURL)
	loginPage, err := e.do(ctx, http.MethodPost, e.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return codes.Codes{}, err
	}

	session, err := SessionID(loginPage)
	if err != nil {
		return codes.Codes{}, err
	}
	klog.V(2).Infof("Session id: %s", session)

	codesURL := e.CodesURL + "?" + codesQuery(session, enc, e.Credentials.ID)
	klog.Infof("Fetching codes page for session %s", session)
	page, err := e.do(ctx, http.MethodGet, codesURL, nil)
	if err != nil {
		return codes.Codes{}, err
	}

	text, err := PageText(strings.NewReader(page))
	if err != nil {
		return codes.Codes{}, err
	}
	klog.V(4).Infof("Codes page text: %s", text)
	fields, err := Fields(text)
	if err != nil {
		return codes.Codes{}, err
	}
	return codes.FromFields(fields)
}

// codesQuery keeps the parameter order of the portal's own links.
func codesQuery(session string, enc encodedCredentials, id string) string {
	return "session=" + session +
		"&x=2" +
		"&fi=" + quote(enc.first) +
		"&fa=" + quote(enc.last) +
		"&am=" + url.QueryEscape(id)
}

// quote percent-encodes every byte outside the unreserved set.
func quote(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// do sends a request and returns the body decoded from the page charset.
func (e *Extractor) do(ctx context.Context, method, target string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s %s: unexpected status %s", method, target, resp.Status)
	}
	decoded, err := ioutil.ReadAll(pageCharset.NewDecoder().Reader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", target, err)
	}
	return string(decoded), nil
}

// SessionID returns the decimal id following the first "session=" marker.
func SessionID(page string) (string, error) {
	m := sessionPattern.FindStringSubmatch(page)
	if m == nil {
		return "", ErrNoSession
	}
	return m[1], nil
}

// PageText concatenates every text node of the document and collapses runs
// of whitespace into single spaces.
func PageText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing codes page: %w", err)
	}
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return normalize(buf.String()), nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fields picks the six values from the flattened page: segments 2 to 7 of a
// split on ':', each cut to its first word.
func Fields(text string) ([]string, error) {
	segments := strings.Split(text, ":")
	if len(segments) < 2+len(codes.Keys) {
		return nil, fmt.Errorf("%w: %d segments", ErrShortPage, len(segments))
	}
	values := make([]string, 0, len(codes.Keys))
	for i, seg := range segments[2 : 2+len(codes.Keys)] {
		words := strings.Fields(seg)
		if len(words) == 0 {
			return nil, fmt.Errorf("%w: empty segment %d", ErrShortPage, i+2)
		}
		values = append(values, words[0])
	}
	return values, nil
}
