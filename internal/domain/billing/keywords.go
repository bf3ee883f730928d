package billing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Palabras clave (ya sin tildes y en mayúsculas) que identifican servicios
// de reparación y de revisión. Los nombres se registran en español o inglés.
var (
	repairKeywords   = []string{"REPARA", "REPAIR"}
	revisionKeywords = []string{"REVISION"}
)

// foldName normaliza un nombre de servicio: quita tildes y pasa a mayúsculas,
// de modo que "Reparación de placa" contiene "REPARA".
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(out)
}

func containsAny(name string, keywords []string) bool {
	folded := foldName(name)
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// IsRepairService indica si el nombre corresponde a un servicio de reparación.
func IsRepairService(name string) bool { return containsAny(name, repairKeywords) }

// IsRevisionService indica si el nombre corresponde a un servicio de revisión.
func IsRevisionService(name string) bool { return containsAny(name, revisionKeywords) }
