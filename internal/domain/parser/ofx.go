package parser

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/church-reconciler/internal/domain/ingest"
	"github.com/eshaffer321/church-reconciler/internal/domain/resolver"
)

var plainOFXAmount = regexp.MustCompile(`^[-+]?\d+(?:\.\d+)?$`)

type ofxTokenKind int

const (
	ofxStartTag ofxTokenKind = iota
	ofxEndTag
	ofxText
)

type ofxToken struct {
	kind  ofxTokenKind
	value string
}

// OFXParser reads the STMTTRN blocks of an OFX document (SGML or XML flavour)
type OFXParser struct {
	Amounts *resolver.AmountResolver
}

// NewOFXParser creates an OFX parser
func NewOFXParser() *OFXParser {
	return &OFXParser{Amounts: resolver.NewAmountResolver()}
}

// Parse emits one draft per STMTTRN block. Blocks missing both DTPOSTED and
// TRNAMT are dropped; anything else is kept, since OFX is structured and
// rarely carries noise rows. The description is MEMO, falling back to NAME.
func (p *OFXParser) Parse(ctx context.Context, content string) (*Result, error) {
	blocks := transactionBlocks(tokenizeOFX(content))
	result := newResult(len(blocks))

	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rawDate, rawAmount := block["DTPOSTED"], block["TRNAMT"]
		if rawDate == "" && rawAmount == "" {
			result.reject(i, ReasonMissingFields)
			continue
		}

		description := block["MEMO"]
		if description == "" {
			description = block["NAME"]
		}

		amount := p.cleanAmount(rawAmount)
		result.accept(ingest.TransactionDraft{
			RawDate:        resolver.ResolveToISO(rawDate, 0),
			RawDescription: description,
			RawAmount:      amount,
			SourceRowIndex: i,
			Metadata: ingest.DraftMetadata{
				IsExpense:         strings.HasPrefix(amount, "-"),
				ParsingConfidence: ingest.ConfidenceHigh,
				TransactionType:   block["TRNTYPE"],
				ExternalID:        block["FITID"],
			},
		})
	}

	return result, nil
}

// cleanAmount keeps the OFX decimal point as is; anything else (some banks
// export "1.234,56") goes through the locale-aware cleaner
func (p *OFXParser) cleanAmount(raw string) string {
	if raw == "" {
		return resolver.ZeroAmount
	}
	if plainOFXAmount.MatchString(raw) {
		if d, err := decimal.NewFromString(raw); err == nil {
			return d.StringFixed(2)
		}
	}
	return p.Amounts.Clean(raw)
}

// tokenizeOFX splits OFX into tags and trimmed text. Header lines before the
// first tag become text tokens. Processing instructions and comments are skipped.
func tokenizeOFX(content string) []ofxToken {
	var tokens []ofxToken
	for len(content) > 0 {
		open := strings.IndexByte(content, '<')
		if open < 0 {
			tokens = appendText(tokens, content)
			break
		}
		tokens = appendText(tokens, content[:open])

		end := strings.IndexByte(content[open:], '>')
		if end < 0 {
			break
		}
		tag := strings.TrimSpace(content[open+1 : open+end])
		content = content[open+end+1:]

		switch {
		case tag == "" || strings.HasPrefix(tag, "?") || strings.HasPrefix(tag, "!"):
			continue
		case strings.HasPrefix(tag, "/"):
			tokens = append(tokens, ofxToken{kind: ofxEndTag, value: tagName(tag[1:])})
		default:
			tokens = append(tokens, ofxToken{kind: ofxStartTag, value: tagName(tag)})
		}
	}
	return tokens
}

func appendText(tokens []ofxToken, text string) []ofxToken {
	if text = strings.TrimSpace(text); text != "" {
		tokens = append(tokens, ofxToken{kind: ofxText, value: text})
	}
	return tokens
}

// tagName drops attributes and a self-closing slash
func tagName(tag string) string {
	tag = strings.TrimSuffix(tag, "/")
	if i := strings.IndexAny(tag, " \t\r\n"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToUpper(tag)
}

// transactionBlocks collects the leaf values of every STMTTRN aggregate.
// SGML OFX may omit closing tags, so a block also ends at the next STMTTRN or
// at the end of the transaction list. The first value of a duplicated tag wins.
func transactionBlocks(tokens []ofxToken) []map[string]string {
	var blocks []map[string]string
	var current map[string]string
	field := ""

	flush := func() {
		if current != nil {
			blocks = append(blocks, current)
			current = nil
		}
	}

	for _, tok := range tokens {
		switch tok.kind {
		case ofxStartTag:
			if tok.value == "STMTTRN" {
				flush()
				current = make(map[string]string)
				field = ""
				continue
			}
			field = tok.value
		case ofxEndTag:
			if tok.value == "STMTTRN" || tok.value == "BANKTRANLIST" {
				flush()
			}
			field = ""
		case ofxText:
			if current != nil && field != "" {
				if _, seen := current[field]; !seen {
					current[field] = tok.value
				}
			}
			field = ""
		}
	}
	flush()

	return blocks
}
