package levy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/marketlevy/backend/internal/domain/shared"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultReferencePrefix is used when no prefix is configured
const DefaultReferencePrefix = "LEVY"

// DefaultTINMaxAttempts bounds the uniqueness retry loop of TIN generation
const DefaultTINMaxAttempts = 10

// IDSource supplies the random parts of generated identifiers. Tests inject a
// deterministic sequence.
type IDSource interface {
	// Digits returns n random decimal digits
	Digits(n int) (string, error)
	// Hex returns n random lowercase hex characters
	Hex(n int) (string, error)
}

// CryptoIDSource draws from crypto/rand
type CryptoIDSource struct{}

// Digits returns n random decimal digits
func (CryptoIDSource) Digits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// Hex returns n random lowercase hex characters
func (CryptoIDSource) Hex(n int) (string, error) {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:n], nil
}

// ReferenceGenerator builds transaction references of the form
// PREFIX-yyyyMMdd-xxxxxxxx
type ReferenceGenerator struct {
	prefix string
	source IDSource
}

// NewReferenceGenerator creates a generator. An empty prefix uses DefaultReferencePrefix.
func NewReferenceGenerator(prefix string, source IDSource) *ReferenceGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	if source == nil {
		source = CryptoIDSource{}
	}
	return &ReferenceGenerator{prefix: prefix, source: source}
}

// Generate returns a new reference for a collection made at now
func (g *ReferenceGenerator) Generate(now time.Time) (string, error) {
	suffix, err := g.source.Hex(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, now.Format("20060102"), strings.ToLower(suffix)), nil
}

// TINExistsFunc reports whether a TIN is already assigned to a trader
type TINExistsFunc func(ctx context.Context, tin string) (bool, error)

// TINGenerator derives trader identification numbers STATE/LG/#####
type TINGenerator struct {
	source      IDSource
	exists      TINExistsFunc
	maxAttempts int
}

// NewTINGenerator creates a TIN generator. exists may be nil, in which case no
// uniqueness check is made.
func NewTINGenerator(source IDSource, exists TINExistsFunc, maxAttempts int) *TINGenerator {
	if source == nil {
		source = CryptoIDSource{}
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultTINMaxAttempts
	}
	return &TINGenerator{source: source, exists: exists, maxAttempts: maxAttempts}
}

// Generate draws random suffixes until one is not yet assigned
func (g *TINGenerator) Generate(ctx context.Context, state, localGovernment string) (string, error) {
	statePrefix := NamePrefix(state)
	lgPrefix := NamePrefix(localGovernment)

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		suffix, err := g.source.Digits(5)
		if err != nil {
			return "", err
		}
		tin := fmt.Sprintf("%s/%s/%s", statePrefix, lgPrefix, suffix)
		if g.exists == nil {
			return tin, nil
		}
		taken, err := g.exists(ctx, tin)
		if err != nil {
			return "", fmt.Errorf("failed to check TIN uniqueness: %w", err)
		}
		if !taken {
			return tin, nil
		}
	}

	return "", shared.NewConflictError(fmt.Sprintf("Could not generate a unique TIN for %s/%s after %d attempts", statePrefix, lgPrefix, g.maxAttempts))
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NamePrefix reduces a place name to three uppercase ASCII letters. Tone marks
// are folded (Ọ̀yọ́ becomes OYO), non-letters dropped, short names padded with X.
func NamePrefix(name string) string {
	folded, _, err := transform.String(foldMarks, name)
	if err != nil {
		folded = name
	}

	var sb strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			sb.WriteRune(r)
			if sb.Len() == 3 {
				break
			}
		}
	}
	for sb.Len() < 3 {
		sb.WriteByte('X')
	}
	return sb.String()
}
