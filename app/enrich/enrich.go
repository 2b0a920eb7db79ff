package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Result holds indicators derived from an item's text. Slices are never nil.
type Result struct {
	CVEs     []string
	CWEs     []string
	Tags     []string
	Vendors  []string
	Products []string
	Severity Severity
}

var (
	cvePattern  = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,}`)
	cwePattern  = regexp.MustCompile(`(?i)CWE-\d{1,6}`)
	cvssPattern = regexp.MustCompile(`(?i)\bcvss(?:\s*v[234](?:\.\d)?)?(?:\s+(?:base\s+)?score)?\s*[:=]?\s*(10(?:\.0)?|\d(?:\.\d)?)\b`)

	severityKeywords = []struct {
		severity Severity
		pattern  *regexp.Regexp
	}{
		{SeverityCritical, regexp.MustCompile(`(?i)\bcritical\b`)},
		{SeverityHigh, regexp.MustCompile(`(?i)\bhigh\b`)},
		{SeverityMedium, regexp.MustCompile(`(?i)\bmedium\b`)},
		{SeverityLow, regexp.MustCompile(`(?i)\blow\b`)},
	}
)

// Enrich derives indicators from title, summary and content. It has no side
// effects; identical input always yields identical output.
func Enrich(title, summary, content string) Result {
	text := title + " " + summary + " " + content
	folded := fold(text)

	vendors, products := detectVendors(folded)

	return Result{
		CVEs:     extractIDs(cvePattern, text),
		CWEs:     extractIDs(cwePattern, text),
		Tags:     detectTechnologies(folded),
		Vendors:  vendors,
		Products: products,
		Severity: detectSeverity(text),
	}
}

func extractIDs(pattern *regexp.Regexp, text string) []string {
	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, match := range pattern.FindAllString(text, -1) {
		id := strings.ToUpper(match)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func detectTechnologies(folded string) []string {
	tags := make([]string, 0)
	for _, tech := range Technologies {
		for _, alias := range tech.Aliases {
			if containsWord(folded, fold(alias)) {
				tags = append(tags, tech.Key)
				break
			}
		}
	}
	return tags
}

// A product keyword flags its vendor even when the vendor name is absent.
func detectVendors(folded string) (vendors, products []string) {
	vendors = make([]string, 0)
	products = make([]string, 0)
	seenProducts := make(map[string]bool)

	for _, vendor := range Vendors {
		flagged := containsWord(folded, fold(vendor.Name))
		for _, product := range vendor.Products {
			if !containsWord(folded, fold(product)) {
				continue
			}
			flagged = true
			if !seenProducts[product] {
				seenProducts[product] = true
				products = append(products, product)
			}
		}
		if flagged {
			vendors = append(vendors, vendor.Name)
		}
	}
	return vendors, products
}

func detectSeverity(text string) Severity {
	scores := cvssScores(text)

	for _, level := range severityKeywords {
		if level.pattern.MatchString(text) {
			return level.severity
		}
		for _, score := range scores {
			if scoreSeverity(score) == level.severity {
				return level.severity
			}
		}
	}
	return ""
}

func cvssScores(text string) []float64 {
	var scores []float64
	for _, m := range cvssPattern.FindAllStringSubmatch(text, -1) {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			scores = append(scores, score)
		}
	}
	return scores
}

func scoreSeverity(score float64) Severity {
	switch {
	case score >= 9:
		return SeverityCritical
	case score >= 7:
		return SeverityHigh
	case score >= 4:
		return SeverityMedium
	case score >= 1:
		return SeverityLow
	default:
		return ""
	}
}
