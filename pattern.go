package wspipe

import (
	"strings"

	"github.com/grafana/regexp"
)

// Pattern matches slash-separated values such as request paths and origins.
// Within a segment "*" matches any run of non-slash characters; a segment of
// exactly "**" matches any remainder including slashes.
type Pattern struct {
	str    string
	chunks []chunk
	regExp *regexp.Regexp
}

func NewPattern(patternStr string) (*Pattern, error) {
	chunks := parsePatternChunks(patternStr)
	patternRegExp, err := regExpFromChunks(chunks)
	if err != nil {
		return nil, err
	}

	return &Pattern{
		str:    patternStr,
		chunks: chunks,
		regExp: patternRegExp,
	}, nil
}

func (p *Pattern) Match(value string) bool {
	return p.regExp.MatchString(value)
}

func (p *Pattern) String() string {
	return p.str
}

type chunkKind int

const (
	static chunkKind = iota
	wildcard
	deepWildcard
)

type chunk struct {
	kind    chunkKind
	pattern string
}

func parsePatternChunks(patternStr string) []chunk {
	parts := strings.Split(patternStr, "/")
	chunks := make([]chunk, 0, len(parts))

	for _, part := range parts {
		ch := chunk{kind: static}
		switch {
		case part == "**":
			ch.kind = deepWildcard
			ch.pattern = ".*"
		case strings.Contains(part, "*"):
			ch.kind = wildcard
			ch.pattern = strings.ReplaceAll(regexp.QuoteMeta(part), "\\*", "[^/]*")
		default:
			ch.pattern = regexp.QuoteMeta(part)
		}

		chunks = append(chunks, ch)
	}

	return chunks
}

func regExpFromChunks(chunks []chunk) (*regexp.Regexp, error) {
	if len(chunks) == 0 {
		return regexp.Compile("^$")
	}

	var regExpStr strings.Builder
	regExpStr.WriteString("^")
	for i, currentChunk := range chunks {
		if i > 0 {
			regExpStr.WriteString("/")
		}
		regExpStr.WriteString(currentChunk.pattern)
	}

	regExpStr.WriteString("$")
	return regexp.Compile(regExpStr.String())
}
