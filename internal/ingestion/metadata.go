package ingestion

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// Document kinds recorded under the doc_type metadata key.
const (
	DocTypeStatute    = "statute"
	DocTypeCaseLaw    = "case_law"
	DocTypeRegulation = "regulation"
	DocTypeContract   = "contract"
	DocTypeGeneral    = "general"
)

// DocTypes lists every recognised document kind.
var DocTypes = []string{DocTypeStatute, DocTypeCaseLaw, DocTypeRegulation, DocTypeContract, DocTypeGeneral}

// ValidDocType reports whether s is one of DocTypes.
func ValidDocType(s string) bool {
	return slices.Contains(DocTypes, s)
}

// JurisdictionUnknown is used when nothing in the location names one.
const JurisdictionUnknown = "unknown"

// InferredMetadata holds the jurisdiction and document kind inferred from a
// source location. CLI flags take precedence over inferred values; this is
// the best-effort fallback when the operator does not pass them.
type InferredMetadata struct {
	// Jurisdiction is a short label such as "us-federal", "us-ca", "uk" or "eu".
	Jurisdiction string
	// DocType is one of the DocType* constants.
	DocType string
}

// hostRule describes what a well-known legal publisher implies.
type hostRule struct {
	jurisdiction string
	docType      string
}

// knownHosts maps publisher hostnames (without www.) to their defaults.
// Empty fields leave the path-based inference in charge.
var knownHosts = map[string]hostRule{
	"law.cornell.edu":              {jurisdiction: "us-federal"},
	"uscode.house.gov":             {jurisdiction: "us-federal", docType: DocTypeStatute},
	"ecfr.gov":                     {jurisdiction: "us-federal", docType: DocTypeRegulation},
	"federalregister.gov":          {jurisdiction: "us-federal", docType: DocTypeRegulation},
	"supremecourt.gov":             {jurisdiction: "us-federal", docType: DocTypeCaseLaw},
	"courtlistener.com":            {docType: DocTypeCaseLaw},
	"casetext.com":                 {docType: DocTypeCaseLaw},
	"leginfo.legislature.ca.gov":   {jurisdiction: "us-ca", docType: DocTypeStatute},
	"nysenate.gov":                 {jurisdiction: "us-ny", docType: DocTypeStatute},
	"statutes.capitol.texas.gov":   {jurisdiction: "us-tx", docType: DocTypeStatute},
	"legislation.gov.uk":           {jurisdiction: "uk", docType: DocTypeStatute},
	"bailii.org":                   {jurisdiction: "uk", docType: DocTypeCaseLaw},
	"eur-lex.europa.eu":            {jurisdiction: "eu", docType: DocTypeRegulation},
	"laws-lois.justice.gc.ca":      {jurisdiction: "ca", docType: DocTypeStatute},
	"canlii.org":                   {jurisdiction: "ca", docType: DocTypeCaseLaw},
	"legislation.gov.au":           {jurisdiction: "au", docType: DocTypeStatute},
}

// docTypeKeywords are matched against path segments in order; the first hit wins.
var docTypeKeywords = []struct {
	docType  string
	keywords []string
}{
	{DocTypeContract, []string{"contract", "contracts", "agreement", "agreements", "lease", "nda", "terms"}},
	{DocTypeRegulation, []string{"cfr", "regulation", "regulations", "regs", "rule", "rules", "ordinance"}},
	{DocTypeCaseLaw, []string{"opinion", "opinions", "case", "cases", "caselaw", "case_law", "decision", "decisions", "judgment", "judgments", "ruling"}},
	{DocTypeStatute, []string{"uscode", "usc", "code", "codes", "statute", "statutes", "act", "acts", "legislation"}},
}

// jurisdictionKeywords maps path segments to jurisdiction labels.
var jurisdictionKeywords = map[string]string{
	"federal":      "us-federal",
	"uscode":       "us-federal",
	"usc":          "us-federal",
	"cfr":          "us-federal",
	"california":   "us-ca",
	"ca":           "us-ca",
	"new-york":     "us-ny",
	"newyork":      "us-ny",
	"ny":           "us-ny",
	"texas":        "us-tx",
	"tx":           "us-tx",
	"florida":      "us-fl",
	"fl":           "us-fl",
	"illinois":     "us-il",
	"uk":           "uk",
	"england":      "uk",
	"eu":           "eu",
}

// InferMetadata inspects a URL or file path and returns best-effort metadata.
// Known publisher hosts decide first; otherwise keywords in the path segments
// are used. Unmatched locations default to JurisdictionUnknown and
// DocTypeGeneral.
func InferMetadata(location string) InferredMetadata {
	m := InferredMetadata{}

	host, path := splitLocation(location)
	if rule, ok := knownHosts[host]; ok {
		m.Jurisdiction = rule.jurisdiction
		m.DocType = rule.docType
	}

	segments := trimSegments(path)
	if m.DocType == "" {
		m.DocType = inferDocType(segments)
	}
	if m.Jurisdiction == "" {
		m.Jurisdiction = inferJurisdiction(segments)
	}
	return m
}

// splitLocation returns the lowercase host (empty for files) and path.
func splitLocation(location string) (host, path string) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		parsed, err := url.Parse(location)
		if err != nil {
			return "", strings.ToLower(location)
		}
		host = strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
		return host, strings.ToLower(parsed.Path)
	}
	return "", strings.ToLower(filepath.ToSlash(location))
}

func inferDocType(segments []string) string {
	for _, rule := range docTypeKeywords {
		for _, seg := range segments {
			for _, word := range splitWords(seg) {
				for _, kw := range rule.keywords {
					if word == kw {
						return rule.docType
					}
				}
			}
		}
	}
	return DocTypeGeneral
}

func inferJurisdiction(segments []string) string {
	for _, seg := range segments {
		if j, ok := jurisdictionKeywords[seg]; ok {
			return j
		}
		for _, word := range splitWords(seg) {
			if j, ok := jurisdictionKeywords[word]; ok && len(word) > 2 {
				return j
			}
		}
	}
	return JurisdictionUnknown
}

// splitWords breaks a path segment into words on common separators and drops
// a file extension.
func splitWords(seg string) []string {
	seg = strings.TrimSuffix(seg, filepath.Ext(seg))
	return strings.FieldsFunc(seg, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	})
}

// trimSegments splits a path into non-empty segments.
func trimSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
