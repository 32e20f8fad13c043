package extract

import (
	"regexp"
	"sort"
	"strings"
)

// zoneAliases maps lowercase gazetteer entries to canonical zone labels for
// Santa Cruz de la Sierra. Longest alias wins, so "zona centro" resolves
// before "centro" and "equipetrol norte" before "equipetrol".
var zoneAliases = map[string]string{
	"equipetrol norte":    "Equipetrol Norte",
	"equipetrol":          "Equipetrol",
	"zona centro":         "Centro",
	"casco viejo":         "Centro",
	"centro":              "Centro",
	"zona norte":          "Zona Norte",
	"zona sur":            "Zona Sur",
	"zona este":           "Zona Este",
	"zona oeste":          "Zona Oeste",
	"urubo":               "Urubó",
	"urubó":               "Urubó",
	"las palmas":          "Las Palmas",
	"hamacas":             "Hamacas",
	"sirari":              "Sirari",
	"urbari":              "Urbari",
	"plan 3000":           "Plan 3000",
	"plan tres mil":       "Plan 3000",
	"villa 1ro de mayo":   "Villa 1ro de Mayo",
	"villa primero de mayo": "Villa 1ro de Mayo",
	"pampa de la isla":    "Pampa de la Isla",
	"la guardia":          "La Guardia",
	"santos dumont":       "Santos Dumont",
	"polanco":             "Polanco",
	"el trompillo":        "El Trompillo",
}

// zoneRe is built from the gazetteer with longest aliases first; Go regexp
// alternation prefers earlier alternatives at the same position, so the
// longest match wins.
var zoneRe = buildZoneRe()

func buildZoneRe() *regexp.Regexp {
	aliases := make([]string, 0, len(zoneAliases))
	for a := range zoneAliases {
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})
	for i, a := range aliases {
		aliases[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL])(` + strings.Join(aliases, "|") + `)(?:[^\pL]|$)`)
}

// Ring-road and radial references double as zone labels when no gazetteer
// entry matches ("entre 3er y 4to anillo").
var (
	ringRoadRe = regexp.MustCompile(`(?i)\b([1-9])\s*(?:er|do|ro|to|no|mo)?\.?\s*anillo\b|\banillo\s+([1-9])\b`)
	radialRe   = regexp.MustCompile(`(?i)\bradial\s*(?:n[oº°.]*\s*)?([1-9]\d?)\b`)
)

// amenityVocab maps normalized amenity tags to their lexical markers.
// Presence-based: a tag is either in the set or not, never counted.
var amenityVocab = map[string][]string{
	"pool":             {"piscina", "pileta", "pool"},
	"security":         {"seguridad", "vigilancia", "guardia", "porteria", "portería"},
	"gym":              {"gimnasio", "gym"},
	"bbq":              {"churrasquera", "parrilla", "quincho"},
	"elevator":         {"ascensor", "elevador"},
	"air_conditioning": {"aire acondicionado", "climatizado", "a/c"},
	"furnished":        {"amoblado", "amueblado", "equipado"},
	"garden":           {"jardin", "jardín", "area verde", "área verde"},
	"balcony":          {"balcon", "balcón", "terraza"},
	"playground":       {"parque infantil", "area de niños", "área de niños", "juegos infantiles"},
	"laundry":          {"lavanderia", "lavandería"},
	"sauna":            {"sauna", "jacuzzi", "hidromasaje"},
	"sports_court":     {"cancha", "polifuncional"},
	"gated_community":  {"condominio cerrado", "urbanizacion cerrada", "urbanización cerrada"},
}

// propertyTypeMarkers is an ordered marker list; first match wins, so
// "local comercial" is checked before "local".
var propertyTypeMarkers = []struct {
	marker    string
	canonical string
}{
	{"departamento", "departamento"},
	{"depto", "departamento"},
	{"monoambiente", "departamento"},
	{"penthouse", "penthouse"},
	{"casa", "casa"},
	{"chalet", "casa"},
	{"quinta", "quinta"},
	{"terreno", "terreno"},
	{"lote", "terreno"},
	{"local comercial", "local_comercial"},
	{"local", "local_comercial"},
	{"oficina", "oficina"},
	{"galpon", "galpon"},
	{"galpón", "galpon"},
	{"edificio", "edificio"},
}

// operationMarkers is ordered: "anticretico" must be checked before the
// generic rent/sale markers.
var operationMarkers = []struct {
	marker    string
	canonical string
}{
	{"anticretico", "anticretico"},
	{"anticrético", "anticretico"},
	{"alquil", "alquiler"}, // alquiler, alquilo, se alquila
	{"renta", "alquiler"},
	{"venta", "venta"},
	{"vendo", "venta"},
	{"se vende", "venta"},
}
