package core

// classify.go sorts image references into actionable categories.
//
// Rules are evaluated in table order. A rule either passes the reference on,
// accepts it into the rule's category, or rejects it. Rejection is terminal
// and yields CategoryNotCallable; the last rule accepts unconditionally so
// every reference gets exactly one category.

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Verdict is a rule's decision on one reference.
type Verdict int

const (
	Pass Verdict = iota
	Accept
	Reject
)

// ClassifierRule is one entry in the ordered rule table.
type ClassifierRule struct {
	Name     string
	Category ImageCategory
	Check    func(ctx context.Context, ref string) (Verdict, string)
}

// DefaultTrustedHosts are image CDNs accepted without a network probe when
// the path carries an image extension.
var DefaultTrustedHosts = []string{"images.unsplash.com", "cdn.shopify.com"}

// ImageExtensions are the file extensions recognized as images.
var ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "svg"}

// DefaultPlatformPrefixes and DefaultPlatformMarkers identify references that
// already live in the storefront platform's media library.
var (
	DefaultPlatformPrefixes = []string{"wix:image://", "wix:document://"}
	DefaultPlatformMarkers  = []string{"static.wixstatic.com", "wixmp-"}
)

var (
	protocolPrefix = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]+:`)
	drivePrefix    = regexp.MustCompile(`^[A-Za-z]:`)
)

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	Prober           Prober
	TrustedHosts     []string
	PlatformPrefixes []string
	PlatformMarkers  []string
	// Concurrency bounds parallel classification in ClassifyBatch.
	// Values below 2 classify sequentially.
	Concurrency int
}

// Classifier assigns an ImageCategory to image references.
type Classifier struct {
	rules       []ClassifierRule
	concurrency int
}

// NewClassifier builds the standard rule table. A nil Prober marks every
// https reference outside the trusted hosts as not callable.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.TrustedHosts == nil {
		cfg.TrustedHosts = DefaultTrustedHosts
	}
	if cfg.PlatformPrefixes == nil {
		cfg.PlatformPrefixes = DefaultPlatformPrefixes
	}
	if cfg.PlatformMarkers == nil {
		cfg.PlatformMarkers = DefaultPlatformMarkers
	}
	trusted := make(map[string]bool, len(cfg.TrustedHosts))
	for _, h := range cfg.TrustedHosts {
		trusted[strings.ToLower(h)] = true
	}

	return NewClassifierWithRules([]ClassifierRule{
		{Name: "callable", Category: CategoryCallable, Check: callableCheck(trusted, cfg.Prober)},
		{Name: "platform_native", Category: CategoryPlatformNative, Check: platformCheck(cfg.PlatformPrefixes, cfg.PlatformMarkers)},
		{Name: "local_file", Category: CategoryLocalFile, Check: localFileCheck},
		{Name: "empty", Category: CategoryEmpty, Check: emptyCheck},
		{Name: "fallback", Category: CategoryNotCallable, Check: func(context.Context, string) (Verdict, string) {
			return Accept, "reference matched no known image form"
		}},
	}, cfg.Concurrency)
}

// NewClassifierWithRules builds a classifier over a custom rule table.
func NewClassifierWithRules(rules []ClassifierRule, concurrency int) *Classifier {
	return &Classifier{rules: rules, concurrency: concurrency}
}

// Classify assigns a category to a single reference.
func (c *Classifier) Classify(ctx context.Context, rowID, ref string) ImageClassification {
	out := ImageClassification{RowID: rowID, Reference: ref}
	for _, r := range c.rules {
		verdict, reason := r.Check(ctx, ref)
		switch verdict {
		case Accept:
			out.Category, out.Reason = r.Category, reason
			return out
		case Reject:
			out.Category, out.Reason = CategoryNotCallable, reason
			return out
		}
	}
	out.Category, out.Reason = CategoryNotCallable, "no rule accepted the reference"
	return out
}

// ClassifyBatch classifies the image field of every record. Output order
// matches input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, records []NormalizedRecord, imageField string) []ImageClassification {
	out := make([]ImageClassification, len(records))
	if c.concurrency < 2 {
		for i, rec := range records {
			out[i] = c.Classify(ctx, rec.RowID, rec.Fields[imageField])
		}
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			out[i] = c.Classify(gctx, rec.RowID, rec.Fields[imageField])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func callableCheck(trusted map[string]bool, prober Prober) func(context.Context, string) (Verdict, string) {
	return func(ctx context.Context, ref string) (Verdict, string) {
		ref = strings.TrimSpace(ref)
		u, err := url.Parse(ref)
		if err != nil || !strings.EqualFold(u.Scheme, "https") || u.Host == "" {
			return Pass, ""
		}
		host := strings.ToLower(u.Hostname())
		if trusted[host] && hasImageExtension(u.Path) {
			return Accept, fmt.Sprintf("trusted host %s with image extension", host)
		}
		if prober == nil {
			return Reject, "https reference could not be verified: probing disabled"
		}
		res := prober.Probe(ctx, ref)
		if res.OK {
			return Accept, res.Reason
		}
		return Reject, res.Reason
	}
}

func platformCheck(prefixes, markers []string) func(context.Context, string) (Verdict, string) {
	return func(_ context.Context, ref string) (Verdict, string) {
		ref = strings.TrimSpace(ref)
		for _, p := range prefixes {
			if strings.HasPrefix(ref, p) {
				return Accept, fmt.Sprintf("platform media reference (%s)", p)
			}
		}
		for _, m := range markers {
			if strings.Contains(ref, m) {
				return Accept, fmt.Sprintf("platform media host (%s)", m)
			}
		}
		return Pass, ""
	}
}

func localFileCheck(_ context.Context, ref string) (Verdict, string) {
	ref = strings.TrimSpace(ref)
	if ref == "" || protocolPrefix.MatchString(ref) {
		return Pass, ""
	}
	if drivePrefix.MatchString(ref) {
		return Accept, "local path with drive letter"
	}
	if hasImageExtension(ref) {
		return Accept, "local file name with image extension"
	}
	return Pass, ""
}

func emptyCheck(_ context.Context, ref string) (Verdict, string) {
	if strings.TrimSpace(ref) == "" {
		return Accept, "no image reference"
	}
	return Pass, ""
}

func hasImageExtension(p string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(strings.ReplaceAll(p, `\`, "/")), "."))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
