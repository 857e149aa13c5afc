// Package textnorm cleans bank descriptions and contributor names so they can
// be compared: boilerplate keywords are removed, accents folded and keys
// normalized.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultIgnoreKeywords are bank boilerplate tokens that never identify a contributor
var DefaultIgnoreKeywords = []string{
	"PIX", "RECEBIDO", "RECEBIMENTO", "TRANSFERENCIA", "TRANSF", "TED", "DOC",
	"DEPOSITO", "CREDITO", "CRED", "REMETENTE", "ENVIADO", "PAGAMENTO", "PAGTO",
	"QRCODE", "QR", "CODE", "DINHEIRO", "BOLETO", "CARTAO", "SAQUE", "DE", "DA",
	"DO", "DOS", "DAS",
}

// PaymentMethod is how a transaction was paid
type PaymentMethod string

const (
	PaymentPIX     PaymentMethod = "PIX"
	PaymentTED     PaymentMethod = "TED"
	PaymentDOC     PaymentMethod = "DOC"
	PaymentBoleto  PaymentMethod = "BOLETO"
	PaymentCard    PaymentMethod = "CARTAO"
	PaymentCash    PaymentMethod = "DINHEIRO"
	PaymentDeposit PaymentMethod = "DEPOSITO"
	PaymentOther   PaymentMethod = "OUTRO"
)

var paymentPatterns = []struct {
	method  PaymentMethod
	pattern *regexp.Regexp
}{
	{PaymentPIX, regexp.MustCompile(`\bpix\b`)},
	{PaymentTED, regexp.MustCompile(`\bted\b`)},
	{PaymentDOC, regexp.MustCompile(`\bdoc\b`)},
	{PaymentBoleto, regexp.MustCompile(`\bboleto\b`)},
	{PaymentCard, regexp.MustCompile(`\b(cartao|credito|debito|visa|master)\b`)},
	{PaymentCash, regexp.MustCompile(`\b(dinheiro|especie)\b`)},
	{PaymentDeposit, regexp.MustCompile(`\b(deposito|dep)\b`)},
}

var nonLetters = regexp.MustCompile(`[^a-z\s]+`)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold removes diacritics: "João Conceição" -> "Joao Conceicao"
func Fold(s string) string {
	out, _, err := transform.String(foldAccents, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey lower-cases, folds accents, drops digits and punctuation and
// collapses whitespace. It is the key for learned associations.
func NormalizeKey(s string) string {
	s = strings.ToLower(Fold(s))
	s = nonLetters.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// CleanDescription removes ignore keywords (whole words, case and accent
// insensitive) and digits, keeping the remaining words in their original
// form. When every word is boilerplate the folded original is returned so a
// description never cleans to nothing.
func CleanDescription(desc string, ignoreKeywords []string) string {
	ignored := make(map[string]bool, len(ignoreKeywords))
	for _, kw := range ignoreKeywords {
		if key := NormalizeKey(kw); key != "" {
			ignored[key] = true
		}
	}

	var kept []string
	for _, word := range strings.Fields(desc) {
		key := NormalizeKey(word)
		if key == "" || ignored[key] {
			continue
		}
		kept = append(kept, strings.Trim(word, ".,;:-/*()"))
	}

	if len(kept) == 0 {
		return strings.Join(strings.Fields(desc), " ")
	}
	return strings.Join(kept, " ")
}

// DetectPaymentMethod infers the payment method from keywords in a description
func DetectPaymentMethod(desc string) PaymentMethod {
	key := NormalizeKey(desc)
	for _, p := range paymentPatterns {
		if p.pattern.MatchString(key) {
			return p.method
		}
	}
	return PaymentOther
}

// Tokens returns the normalized words of s longer than two letters
func Tokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(NormalizeKey(s)) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

var contributionPatterns = []struct {
	kind    string
	pattern *regexp.Regexp
}{
	{"DIZIMO", regexp.MustCompile(`\bdizimos?\b`)},
	{"OFERTA", regexp.MustCompile(`\bofertas?\b`)},
	{"MISSOES", regexp.MustCompile(`\bmiss(oes|ao)\b`)},
	{"VOTO", regexp.MustCompile(`\bvotos?\b`)},
}

// DetectContributionType returns DIZIMO, OFERTA, MISSOES or VOTO when the text
// names one, otherwise ""
func DetectContributionType(desc string) string {
	key := NormalizeKey(desc)
	for _, p := range contributionPatterns {
		if p.pattern.MatchString(key) {
			return p.kind
		}
	}
	return ""
}
