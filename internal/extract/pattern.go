// Package extract implements the deterministic pattern-matching stage of the
// listing pipeline: ordered regex and lexicon matchers that turn free-text
// titles and descriptions into structured feature sets at zero marginal cost.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/urbo-labs/casamatch/internal/domain"
)

// Plausible price window in the transacting currency. Values outside are
// treated as extraction noise and rejected.
const (
	MinPlausiblePrice = 1_000
	MaxPlausiblePrice = 10_000_000
)

var (
	// Price patterns carry alternative capture groups (prefix vs suffix
	// currency); whichever group participated wins via firstGroup.
	priceUSDRe = regexp.MustCompile(
		`(?i)(?:\$us\.?|u\$s|us\$|usd|\$)\s*([\d][\d.,]*)` +
			`|([\d][\d.,]*)\s*(?:d[oó]lares|usd|\$us)`)
	priceBOBRe = regexp.MustCompile(
		`(?i)\bbs\.?\s*([\d][\d.,]*)` +
			`|([\d][\d.,]*)\s*(?:bolivianos|bs\b)`)
	priceBareRe = regexp.MustCompile(`(?i)\bprecio[:\s]+([\d][\d.,]*)`)

	surfaceRe = regexp.MustCompile(
		`(?i)([\d][\d.,]*)\s*(?:m2|m²|mts2|mts²|mt2|metros cuadrados)` +
			`|\bsuperficie[:\s]+([\d][\d.,]*)`)
	dimensionsRe = regexp.MustCompile(
		`(?i)([\d][\d.,]*)\s*[x×]\s*([\d][\d.,]*)\s*(?:m\b|mts?\b|metros)?`)

	bedroomsRe = regexp.MustCompile(
		`(?i)(\d{1,2})\s*(?:dormitorios?|habitaciones?|dorms?\b|cuartos?|rec[aá]maras?)` +
			`|(?:dormitorios?|habitaciones?)[:\s]+(\d{1,2})`)
	bathroomsRe = regexp.MustCompile(
		`(?i)(\d{1,2})\s*(?:ba[ñn]os?\b)` +
			`|(?:ba[ñn]os?)[:\s]+(\d{1,2})`)
	garagesRe = regexp.MustCompile(
		`(?i)(\d{1,2})\s*(?:garajes?|garages?|parqueos?|cocheras?)` +
			`|(?:garajes?|garages?|parqueos?)[:\s]+(\d{1,2})`)

	agentRe = regexp.MustCompile(
		`(?i)(?:agente|asesor(?:a)?|br[oó]ker)[:\s]+([\pL .]{3,40})`)
	phoneRe = regexp.MustCompile(
		`(?i)(?:cel|tel|whatsapp|wsp|fono)[.:\s]*(\+?[\d][\d\s-]{6,14}\d)` +
			`|(\+?591[\s-]?[67]\d{7})\b|\b([67]\d{7})\b`)
)

// Features runs every matcher over (title, description) and returns the
// partial feature set. Pure function: identical input always yields an
// identical result. Each field is matched independently, so one miss never
// blocks the others.
func Features(title, description string) domain.FeatureSet {
	text := domain.RawListing{Title: title, Description: description}.Text()
	lower := strings.ToLower(text)

	fs := domain.FeatureSet{
		Currency: domain.CurrencyUnknown,
		Method:   domain.MethodRegexOnly,
	}

	extractPrice(text, &fs)
	extractSurface(text, &fs)

	if n, ok := matchCount(bedroomsRe, text); ok {
		fs.Bedrooms = &n
	}
	if n, ok := matchCount(bathroomsRe, text); ok {
		fs.Bathrooms = &n
	}
	if n, ok := matchCount(garagesRe, text); ok {
		fs.Garages = &n
	}

	if zone := matchZone(text); zone != "" {
		fs.Zone = &zone
	}
	if pt := matchMarker(lower, propertyTypeMarkers); pt != "" {
		fs.PropertyType = &pt
	}
	if op := matchMarker(lower, operationMarkers); op != "" {
		fs.Operation = &op
	}

	if m := agentRe.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(firstGroup(m))
		if name != "" {
			fs.AgentName = &name
		}
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		phone := strings.TrimSpace(firstGroup(m))
		if phone != "" {
			fs.AgentContact = &phone
		}
	}

	fs.Amenities = matchAmenities(lower)
	fs.NormalizeAmenities()

	return fs
}

// firstGroup returns the first capture group that participated in the match.
// Patterns with alternatives leave non-participating groups empty; indexing a
// fixed group would read the wrong alternative.
func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

func extractPrice(text string, fs *domain.FeatureSet) {
	type attempt struct {
		re       *regexp.Regexp
		currency domain.Currency
	}
	// Ordered: explicit currency markers before the bare "precio:" fallback.
	for _, a := range []attempt{
		{priceUSDRe, domain.CurrencyUSD},
		{priceBOBRe, domain.CurrencyBOB},
		{priceBareRe, domain.CurrencyUnknown},
	} {
		m := a.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, ok := parseAmount(firstGroup(m))
		if !ok || v < MinPlausiblePrice || v > MaxPlausiblePrice {
			continue
		}
		fs.Price = &v
		fs.Currency = a.currency
		return
	}
}

func extractSurface(text string, fs *domain.FeatureSet) {
	if m := surfaceRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseAmount(firstGroup(m)); ok && v > 0 {
			fs.SurfaceM2 = &v
			return
		}
	}
	// Derive area from "20x30" style dimension patterns.
	if m := dimensionsRe.FindStringSubmatch(text); m != nil {
		w, okW := parseAmount(m[1])
		h, okH := parseAmount(m[2])
		if okW && okH && w > 0 && h > 0 && w < 1_000 && h < 1_000 {
			area := w * h
			if area >= 10 {
				fs.SurfaceM2 = &area
			}
		}
	}
}

func matchCount(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(firstGroup(m))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// matchZone resolves the zone label: gazetteer longest match first, then
// ring-road and radial references. First match wins.
func matchZone(text string) string {
	if m := zoneRe.FindStringSubmatch(text); m != nil {
		if canonical, ok := zoneAliases[strings.ToLower(firstGroup(m))]; ok {
			return canonical
		}
	}
	if m := ringRoadRe.FindStringSubmatch(text); m != nil {
		if n := firstGroup(m); n != "" {
			return ringRoadLabel(n)
		}
	}
	if m := radialRe.FindStringSubmatch(text); m != nil {
		return "Radial " + m[1]
	}
	return ""
}

func ringRoadLabel(n string) string {
	suffix := map[string]string{
		"1": "er", "2": "do", "3": "er", "4": "to", "5": "to",
		"6": "to", "7": "mo", "8": "vo", "9": "no",
	}[n]
	return n + suffix + " Anillo"
}

func matchMarker(lower string, markers []struct{ marker, canonical string }) string {
	for _, m := range markers {
		if strings.Contains(lower, m.marker) {
			return m.canonical
		}
	}
	return ""
}

func matchAmenities(lower string) []string {
	var tags []string
	for tag, markers := range amenityVocab {
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

// parseAmount normalizes numeric tokens with US ("1,234.56") or European
// ("1.234,56") separators into a float64.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".,")
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the later one is the decimal separator.
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// normalizeSingleSeparator decides whether a lone separator is decimal
// (followed by 1-2 digits, appearing once) or a thousands separator.
func normalizeSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	last := parts[len(parts)-1]
	if len(parts) == 2 && len(last) >= 1 && len(last) <= 2 {
		return parts[0] + "." + last
	}
	return strings.Join(parts, "")
}
