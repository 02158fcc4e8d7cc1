package recog

import (
	"fmt"
	"strings"
)

// CandidateSeparator joins the candidates of one engine in a report line.
const CandidateSeparator = "; "

// Report is the outcome of one engine call. Exactly one of Candidates or
// Err is meaningful: Err != nil means the call failed.
type Report struct {
	Engine     string
	Language   string
	Candidates []string
	Err        error
}

// OK reports whether the engine call succeeded.
func (r Report) OK() bool { return r.Err == nil }

// Body is the text after the "engine (lang): " prefix.
func (r Report) Body() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return strings.Join(r.Candidates, CandidateSeparator)
}

// String formats the report as "{engine} ({language}): {body}".
func (r Report) String() string {
	return r.line(r.Body())
}

func (r Report) line(body string) string {
	return fmt.Sprintf("%s (%s): %s", r.Engine, r.Language, body)
}
